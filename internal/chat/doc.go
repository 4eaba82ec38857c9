// Package chat implements the per-user session handle and the conversation
// engine that drives ask/answer dialogs.
//
// # Chat
//
// A Chat is bound to one recipient and sends through an injected
// Transport:
//
//	c := chat.New(recipient, chat.Config{Transport: graphClient, Logger: logger})
//	c.Say(ctx, message.Text("Welcome!"), chat.WithAutoTyping())
//
// Say accepts every message.Message variant. Texts are sent one by one and
// sending stops at the first failure; earlier sends are not undone.
//
// # Conversations
//
// Conversation starts a dialog bound to the chat, replacing any previous
// one:
//
//	c.Conversation(ctx, func(ctx context.Context, convo *chat.Conversation) error {
//	    return convo.Ask(ctx, message.Text("What's your name?"), func(ctx context.Context, evt *event.Event, convo *chat.Conversation, _ event.Data) error {
//	        convo.Set("name", evt.Text)
//	        return convo.Ask(ctx, message.Text("Favorite color?"), saveColor)
//	    })
//	})
//
// Questions are queued. Only the head of the queue is ever sent; the next
// one goes out after the previous answer callback returns. When the queue
// runs dry the conversation ends.
//
// States:
//
//   - StateIdle: active, nothing waiting (new, handed back, or a send failed)
//   - StateWaiting: the head question was sent, an answer is expected
//   - StateInactive: ended; no callback of this conversation fires again
//
// Respond gives a waiting conversation the first look at an inbound
// event. Auxiliary handlers (WithEventHandler, WithPatternHandler) observe
// without advancing; a text message is the answer; anything else is left
// for the router.
//
// # Locking
//
// Internal state is mutex guarded, but locks are never held while a
// callback or a transport call runs. Handlers for the same user can
// overlap and must not assume exclusive access across sends.
package chat
