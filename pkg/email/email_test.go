package email_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexconsultoria/checkout/pkg/email"
)

func TestMessageValidate(t *testing.T) {
	valid := email.Message{To: "maria@example.com", Subject: "Pagamento confirmado", BodyHTML: "<p>ok</p>"}
	assert.NoError(t, valid.Validate())

	cases := map[string]email.Message{
		"bad recipient": {To: "nope", Subject: "s", BodyHTML: "b"},
		"no subject":    {To: "a@b.co", BodyHTML: "b"},
		"no body":       {To: "a@b.co", Subject: "s"},
	}
	for name, msg := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, msg.Validate(), email.ErrInvalidParams)
		})
	}
}

func TestMemorySender(t *testing.T) {
	s := email.NewMemorySender()
	msg := email.Message{To: "maria@example.com", Subject: "Bem-vinda", BodyHTML: "<p>oi</p>", Tag: "activation"}
	require.NoError(t, s.Send(t.Context(), msg))

	sent := s.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, msg, sent[0])
}

func TestNewPostmarkSenderConfig(t *testing.T) {
	_, err := email.NewPostmarkSender(email.Config{})
	assert.ErrorIs(t, err, email.ErrInvalidConfig)

	_, err = email.NewPostmarkSender(email.Config{
		PostmarkServerToken:  "server",
		PostmarkAccountToken: "account",
		SenderEmail:          "not-an-email",
		SupportEmail:         "support@example.com",
	})
	assert.ErrorIs(t, err, email.ErrInvalidConfig)
}
