package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freeday/internal/domain"
)

func TestTemplateRenderer_Render(t *testing.T) {
	r, err := NewTemplateRenderer()
	require.NoError(t, err)

	t.Run("welcome", func(t *testing.T) {
		subject, html, text, err := r.Render("welcome", &domain.WelcomeMessageEmailData{Email: "an@example.com", Name: "An"})
		require.NoError(t, err)
		assert.Equal(t, "Chào mừng An đến với Freeday", subject)
		assert.Contains(t, html, "<strong>an@example.com</strong>")
		assert.Contains(t, text, "Xin chào An")
	})

	t.Run("registration confirmed escapes html", func(t *testing.T) {
		data := &domain.RegistrationEmailData{
			Email:        "an@example.com",
			Name:         "An",
			EventTitle:   "Jazz <night>",
			StartsAt:     "2026-05-01 19:00",
			LocationText: "Hồ Gươm",
		}
		subject, html, text, err := r.Render("registration_confirmed", data)
		require.NoError(t, err)
		assert.Equal(t, "Bạn đã đăng ký: Jazz <night>", subject)
		assert.Contains(t, html, "Jazz &lt;night&gt;")
		assert.Contains(t, text, "Hồ Gươm")
	})

	t.Run("unknown template", func(t *testing.T) {
		_, _, _, err := r.Render("missing", nil)
		require.Error(t, err)
	})
}
