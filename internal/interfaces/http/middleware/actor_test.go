package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/tecnipro/cobranzas/internal/domain/audit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestActor(t *testing.T) {
	t.Run("resolves the actor from the header", func(t *testing.T) {
		var got audit.Actor
		r := gin.New()
		r.Use(Actor())
		r.GET("/", func(c *gin.Context) {
			got = GetActor(c)
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(ActorHeader, "  maria  ")
		req.RemoteAddr = "10.0.0.5:51234"
		r.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "maria", got.Name)
		assert.Equal(t, "10.0.0.5", got.SourceIP)
	})

	t.Run("missing header falls back to anonymous", func(t *testing.T) {
		var got audit.Actor
		r := gin.New()
		r.Use(Actor())
		r.GET("/", func(c *gin.Context) {
			got = GetActor(c)
			c.Status(http.StatusOK)
		})

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, "anonymous", got.Name)
	})
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(10))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.ContentLength = 100
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
