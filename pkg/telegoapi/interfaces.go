package telegoapi

import (
	"context"

	"github.com/mymmrac/telego"
)

// BotAPI defines the interface for bot operations used by various packages.
// This allows using both the real telego.Bot and mocks.
type BotAPI interface {
	GetMe(ctx context.Context) (*telego.User, error)
	GetChatMember(ctx context.Context, params *telego.GetChatMemberParams) (telego.ChatMember, error)

	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	CopyMessage(ctx context.Context, params *telego.CopyMessageParams) (*telego.MessageID, error)
	SendMediaGroup(ctx context.Context, params *telego.SendMediaGroupParams) ([]telego.Message, error)

	// Kind-specific sends used by the dispatcher when no caption metadata
	// has to be preserved verbatim.
	SendPhoto(ctx context.Context, params *telego.SendPhotoParams) (*telego.Message, error)
	SendVideo(ctx context.Context, params *telego.SendVideoParams) (*telego.Message, error)
	SendDocument(ctx context.Context, params *telego.SendDocumentParams) (*telego.Message, error)
	SendAudio(ctx context.Context, params *telego.SendAudioParams) (*telego.Message, error)
	SendAnimation(ctx context.Context, params *telego.SendAnimationParams) (*telego.Message, error)
	SendSticker(ctx context.Context, params *telego.SendStickerParams) (*telego.Message, error)
	SendVoice(ctx context.Context, params *telego.SendVoiceParams) (*telego.Message, error)
	SendVideoNote(ctx context.Context, params *telego.SendVideoNoteParams) (*telego.Message, error)
	SendPoll(ctx context.Context, params *telego.SendPollParams) (*telego.Message, error)
	SendLocation(ctx context.Context, params *telego.SendLocationParams) (*telego.Message, error)
	SendContact(ctx context.Context, params *telego.SendContactParams) (*telego.Message, error)
	SendVenue(ctx context.Context, params *telego.SendVenueParams) (*telego.Message, error)

	DeleteMessage(ctx context.Context, params *telego.DeleteMessageParams) error
	EditMessageText(ctx context.Context, params *telego.EditMessageTextParams) (*telego.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *telego.AnswerCallbackQueryParams) error
}
