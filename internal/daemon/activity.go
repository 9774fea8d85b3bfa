package daemon

import (
	"github.com/matheus3301/vivah/internal/bus"
	"github.com/matheus3301/vivah/internal/chat"
	"github.com/matheus3301/vivah/internal/status"
	"go.uber.org/zap"
)

// logActivity records bus traffic in the daemon log until the returned
// function is called.
func logActivity(b *bus.Bus, logger *zap.Logger) func() {
	ch, unsub := b.Subscribe("", "", 256)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for evt := range ch {
			switch p := evt.Payload.(type) {
			case chat.Message:
				logger.Debug(evt.Kind, zap.String("conversation_id", p.ConversationID), zap.String("msg_id", p.ID))
			case chat.Conversation:
				logger.Debug(evt.Kind, zap.String("conversation_id", p.ID), zap.Time("last_message_at", p.LastMessageAt))
			case chat.Connection:
				logger.Info(evt.Kind,
					zap.String("connection_id", p.ID),
					zap.String("sender_id", p.SenderID),
					zap.String("receiver_id", p.ReceiverID),
					zap.String("state", string(p.State)))
			case status.StatusChange:
				logger.Info(evt.Kind, zap.String("from", string(p.From)), zap.String("to", string(p.To)))
			default:
				logger.Debug(evt.Kind, zap.String("key", evt.Key))
			}
		}
	}()
	return func() {
		unsub()
		<-done
	}
}
