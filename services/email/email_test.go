package emailsvc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/compass/core"
	"github.com/trezcool/compass/core/user"
	appfs "github.com/trezcool/compass/fs"
)

func resetMessage() *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: "Ada", Address: "ada@example.com"}},
		Subject:      "password reset",
		TemplateName: "password_reset",
		TemplateData: user.PasswordResetData{Name: "Ada", URL: "http://localhost:8080/password-reset/confirm?uid=x&token=y"},
	}
}

func TestConsoleServiceMock(t *testing.T) {
	conf := core.NewTestConfig()
	core.ParseEmailTemplates(appfs.FS, "templates/email", true, core.NopLogger{})
	ResetSentMessages()

	svc := NewConsoleServiceMock(conf)
	svc.SendMessages(
		resetMessage(),
		&core.EmailMessage{Subject: "nobody", BodyStr: "dropped"}, // no recipients
		&core.EmailMessage{To: []mail.Address{{Address: "ada@example.com"}}, Subject: "empty"},
	)

	sent := GetSentMessages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, "Hi Ada,")
	assert.Contains(t, sent[0].TextContent, "reset your Campus Compass password")
	assert.Contains(t, sent[0].TextContent, "/password-reset/confirm?uid=x&token=y")
	assert.NotEmpty(t, sent[0].HTMLContent)

	ResetSentMessages()
	assert.Empty(t, GetSentMessages())
}

func TestConsoleService_send(t *testing.T) {
	conf := core.NewTestConfig()
	svc := consoleService{conf: conf, logger: core.NopLogger{}, defaultFromEmail: conf.DefaultFromEmail(), disableOutput: true}

	msg := core.EmailMessage{To: []mail.Address{{Address: "ada@example.com"}}, Subject: "hi", TextContent: "hello"}
	assert.NoError(t, svc.send(msg))
}

func newSendgridTestService(t *testing.T, handler http.HandlerFunc) sendgridService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	prevHost := host
	host = srv.URL
	t.Cleanup(func() { host = prevHost })

	conf := core.NewTestConfig()
	conf.SendgridApiKey = "SG.test"
	retrier := core.Retrier{MaxAttempts: 3, BaseDelay: time.Microsecond, Logger: core.NopLogger{}}
	return *NewSendgridService(conf, retrier, core.NopLogger{}).(*sendgridService)
}

func TestSendgridService_send(t *testing.T) {
	core.ParseEmailTemplates(appfs.FS, "templates/email", true, core.NopLogger{})
	msg := resetMessage()
	require.NoError(t, msg.Render(core.NewTestConfig()))

	t.Run("request", func(t *testing.T) {
		var body map[string]interface{}
		svc := newSendgridTestService(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, endpoint, r.URL.Path)
			assert.Equal(t, "Bearer SG.test", r.Header.Get("Authorization"))
			data, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(data, &body)
			w.WriteHeader(http.StatusAccepted)
		})

		require.NoError(t, svc.send(context.Background(), *msg))
		personalizations := body["personalizations"].([]interface{})
		p := personalizations[0].(map[string]interface{})
		assert.Equal(t, "[Campus Compass] password reset", p["subject"])
		assert.Len(t, body["content"], 2)
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls int32
		svc := newSendgridTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusAccepted)
		})

		assert.NoError(t, svc.send(context.Background(), *msg))
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("gives up after the last attempt", func(t *testing.T) {
		var calls int32
		svc := newSendgridTestService(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusInternalServerError)
		})

		assert.Error(t, svc.send(context.Background(), *msg))
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("client errors are final", func(t *testing.T) {
		var calls int32
		svc := newSendgridTestService(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"errors":[{"message":"bad from"}]}`))
		})

		err := svc.send(context.Background(), *msg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), errBadRequest.Error())
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}
