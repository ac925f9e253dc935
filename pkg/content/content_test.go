package content_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/content"
)

func TestBuild(t *testing.T) {
	t.Parallel()

	builder := content.NewBuilder()

	t.Run("known event with params", func(t *testing.T) {
		t.Parallel()

		c := builder.Build(content.EventLike, map[string]string{"actor": "jane"})
		assert.Equal(t, "New Like", c.Title)
		assert.Equal(t, "jane liked your post", c.Body)
	})

	t.Run("data payload carries event and params", func(t *testing.T) {
		t.Parallel()

		c := builder.Build(content.EventComment, map[string]string{
			"actor":  "bob",
			"postId": "42",
		})
		assert.Equal(t, "comment", c.Data["event"])
		assert.Equal(t, "bob", c.Data["actor"])
		assert.Equal(t, "42", c.Data["postId"])
	})

	t.Run("unknown event falls back to generic", func(t *testing.T) {
		t.Parallel()

		c := builder.Build(content.Event("solar_flare"), nil)
		assert.Equal(t, "New Notification", c.Title)
		assert.Equal(t, "You have a new notification", c.Body)
		assert.Equal(t, "solar_flare", c.Data["event"])
	})

	t.Run("missing param renders empty", func(t *testing.T) {
		t.Parallel()

		c := builder.Build(content.EventLike, nil)
		assert.Equal(t, " liked your post", c.Body)
	})

	t.Run("nil params never panic", func(t *testing.T) {
		t.Parallel()

		for _, ev := range content.KnownEvents() {
			c := builder.Build(ev, nil)
			assert.NotEmpty(t, c.Title, "event %s", ev)
			assert.NotNil(t, c.Data)
		}
	})

	t.Run("system event renders message param", func(t *testing.T) {
		t.Parallel()

		c := builder.Build(content.EventSystem, map[string]string{"message": "maintenance at noon"})
		assert.Equal(t, "System Message", c.Title)
		assert.Equal(t, "maintenance at noon", c.Body)
	})

	t.Run("extra params are preserved but not interpolated", func(t *testing.T) {
		t.Parallel()

		c := builder.Build(content.EventFollow, map[string]string{
			"actor":      "sam",
			"followerId": "7",
		})
		assert.Equal(t, "sam started following you", c.Body)
		assert.Equal(t, "7", c.Data["followerId"])
	})
}

func TestBuildLocalized(t *testing.T) {
	t.Parallel()

	extra := []byte(`
es:
  like:
    title: "Nuevo Me Gusta"
    body: "A {actor} le gusta tu publicación"
  generic:
    title: "Nueva Notificación"
    body: "Tienes una nueva notificación"
`)

	builder, err := content.New(content.WithCatalogData(extra))
	require.NoError(t, err)

	t.Run("exact locale match", func(t *testing.T) {
		t.Parallel()

		c := builder.BuildLocalized("es", content.EventLike, map[string]string{"actor": "ana"})
		assert.Equal(t, "Nuevo Me Gusta", c.Title)
		assert.Equal(t, "A ana le gusta tu publicación", c.Body)
	})

	t.Run("regional variant matches base locale", func(t *testing.T) {
		t.Parallel()

		c := builder.BuildLocalized("es-MX", content.EventLike, map[string]string{"actor": "ana"})
		assert.Equal(t, "Nuevo Me Gusta", c.Title)
	})

	t.Run("missing event in locale falls back to default locale", func(t *testing.T) {
		t.Parallel()

		c := builder.BuildLocalized("es", content.EventFollow, map[string]string{"actor": "ana"})
		assert.Equal(t, "New Follower", c.Title)
		assert.Equal(t, "ana started following you", c.Body)
	})

	t.Run("unmatched locale uses default", func(t *testing.T) {
		t.Parallel()

		c := builder.BuildLocalized("ja", content.EventLike, map[string]string{"actor": "kei"})
		assert.Equal(t, "New Like", c.Title)
	})

	t.Run("malformed locale uses default", func(t *testing.T) {
		t.Parallel()

		c := builder.BuildLocalized("not a locale!!", content.EventLike, map[string]string{"actor": "kei"})
		assert.Equal(t, "New Like", c.Title)
	})

	t.Run("locales reports default first", func(t *testing.T) {
		t.Parallel()

		locales := builder.Locales()
		require.NotEmpty(t, locales)
		assert.Equal(t, "en", locales[0])
		assert.Contains(t, locales, "es")
	})
}

func TestNewErrors(t *testing.T) {
	t.Parallel()

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()

		_, err := content.New(content.WithCatalogData([]byte("{{not yaml")))
		require.Error(t, err)
		assert.ErrorIs(t, err, content.ErrInvalidCatalog)
	})

	t.Run("invalid locale tag", func(t *testing.T) {
		t.Parallel()

		_, err := content.New(content.WithCatalogData([]byte("'bad locale tag':\n  like:\n    title: x\n    body: y\n")))
		require.Error(t, err)
		assert.ErrorIs(t, err, content.ErrInvalidLocale)
	})

	t.Run("default locale must exist", func(t *testing.T) {
		t.Parallel()

		_, err := content.New(content.WithDefaultLocale("fr"))
		require.Error(t, err)
		assert.ErrorIs(t, err, content.ErrInvalidCatalog)
	})
}

func TestInterpolationEdgeCases(t *testing.T) {
	t.Parallel()

	builder, err := content.New(content.WithCatalogData([]byte(`
en:
  system:
    title: "Braces {"
    body: "{a}{b} and {missing} end"
`)))
	require.NoError(t, err)

	c := builder.Build(content.EventSystem, map[string]string{"a": "1", "b": "2"})
	assert.Equal(t, "Braces {", c.Title)
	assert.Equal(t, "12 and  end", c.Body)
}
