package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/compass/core/reference"
)

func TestAPI_Reference(t *testing.T) {
	app := setup(t)
	token := getToken(t, demoUser)

	runHTTPTests(t, app, []httpTest{
		{
			name:     "without token",
			method:   http.MethodGet,
			path:     "/api/v1/reference/grades",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "grades",
			method:   http.MethodGet,
			path:     "/api/v1/reference/grades",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []reference.Grade{
				{ID: "9", Name: "9th Grade", Number: "9"},
				{ID: "10", Name: "10th Grade", Number: "10"},
				{ID: "11", Name: "11th Grade", Number: "11"},
				{ID: "12", Name: "12th Grade", Number: "12"},
			}),
		},
		{
			name:     "campuses",
			method:   http.MethodGet,
			path:     "/api/v1/reference/campuses",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []reference.Campus{
				{ID: "101", Name: "Main Campus"},
				{ID: "102", Name: "North Campus"},
				{ID: "103", Name: "South Campus"},
			}),
		},
		{
			name:     "empty list",
			method:   http.MethodGet,
			path:     "/api/v1/reference/contracts",
			token:    token,
			wantCode: http.StatusOK,
			wantData: []byte(`[]`),
		},
		{
			name:     "unknown kind",
			method:   http.MethodGet,
			path:     "/api/v1/reference/planets",
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "unknown reference list"}),
		},
	})
}

func TestPages_Reference(t *testing.T) {
	app := setup(t)
	b := loggedIn(t, app)

	rec := b.get("/reference/languages")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Languages")
	assert.Contains(t, rec.Body.String(), "Spanish")

	rec = b.get("/reference/planets")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "has been moved")

	// the dashboard requires a session
	anon := newBrowser(t, app)
	assertRedirect(t, anon.get("/reference/languages"), "/login")
}
