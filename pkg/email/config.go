package email

// Config carries the Postmark sender identity. The tokens are optional so a
// development deployment can parse the same config while routing email
// through DevSender; NewPostmarkClient enforces them at construction.
// SenderEmail is the From on every notification and SupportEmail catches
// replies to it.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	SupportEmail         string `env:"SUPPORT_EMAIL,required"`
}
