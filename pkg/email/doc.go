// Package email carries the engine's email channel: a small EmailSender
// interface with Postmark, SMTP, and local development backends.
//
// The email provider in pkg/provider renders a notification, resolves the
// user's address, and hands the result here. Senders validate parameters
// before dialing anything and report failures through shared sentinels.
//
//   - NewPostmarkClient — production delivery with open/click tracking; the
//     notification type travels as the Postmark tag.
//   - NewSMTPSender — self-hosted relays and catch-all test servers, via
//     gomail.
//   - NewDevSender — captures each email on disk as an HTML body plus a JSON
//     envelope so developers can see what a user would have received.
//
// # Usage
//
//	sender, err := email.NewPostmarkClient(email.Config{
//	    PostmarkServerToken:  "server-token",
//	    PostmarkAccountToken: "account-token",
//	    SenderEmail:          "notifications@example.com",
//	    SupportEmail:         "support@example.com",
//	})
//	if err != nil {
//	    return err
//	}
//
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//	    SendTo:   "reader@example.com",
//	    Subject:  "alice started following you",
//	    BodyHTML: body,
//	    Tag:      "follow",
//	})
//
// # Errors
//
// ErrInvalidConfig rejects bad construction, ErrInvalidParams rejects bad
// send parameters, and ErrFailedToSendEmail wraps gateway failures. All are
// errors.Is-inspectable.
package email
