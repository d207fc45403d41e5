package main

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebfingerHandlerAnswersConfiguredAccount(t *testing.T) {
	req := httptest.NewRequest("GET", "/.well-known/webfinger?resource=acct:relay@example.social", nil)
	rec := httptest.NewRecorder()

	webfingerHandler("example.social", "relay")(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://example.social/users/relay")
}

func TestWebfingerHandlerRejectsUnknownResource(t *testing.T) {
	req := httptest.NewRequest("GET", "/.well-known/webfinger?resource=acct:nobody@example.social", nil)
	rec := httptest.NewRecorder()

	webfingerHandler("example.social", "relay")(rec, req)

	assert.Equal(t, 404, rec.Code)
}
