package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRemote(t *testing.T, handler http.HandlerFunc) *RemoteClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewRemoteClient(RemoteConfig{BaseURL: server.URL}, nil)
	require.NoError(t, err)
	return client
}

func TestNewRemoteClient(t *testing.T) {
	t.Run("derives the URL from the subdomain", func(t *testing.T) {
		client, err := NewRemoteClient(RemoteConfig{Subdomain: "acme"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "https://acme.example-ticketing.test/api/v2/requests.json", client.URL())
	})

	t.Run("requires a subdomain or base URL", func(t *testing.T) {
		_, err := NewRemoteClient(RemoteConfig{}, nil)
		assert.ErrorIs(t, err, ErrMissingSubdomain)
	})
}

func TestRemoteClientPost(t *testing.T) {
	payload := FormatPayload(SubmitData{Comment: "My printer is on fire!", Email: "jane@example.com", Name: "Jane"})

	t.Run("posts JSON and decodes a created request", func(t *testing.T) {
		client := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/v2/requests.json", r.URL.Path)
			assert.Contains(t, r.Header.Get("Content-Type"), "application/json")

			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			var got RequestPayload
			require.NoError(t, json.Unmarshal(body, &got))
			assert.Equal(t, payload, got)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"request":{"id":35436,"status":"new","description":"My printer is on fire!","via":{"channel":"api"}}}`))
		})

		result := client.Post(context.Background(), payload)

		require.True(t, result.OK)
		assert.Equal(t, Ticket{ID: 35436, Status: "new", Description: "My printer is on fire!"}, result.Ticket)
		assert.Equal(t, http.StatusCreated, result.StatusCode)
		assert.Contains(t, string(result.Raw), `"channel":"api"`)
	})

	t.Run("decodes record validation errors", func(t *testing.T) {
		client := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"error":"RecordInvalid","description":"Record validation errors","details":{"base":[{"description":"Description: cannot be blank","error":"BlankValue","field_key":"description"}]}}`))
		})

		result := client.Post(context.Background(), payload)

		require.False(t, result.OK)
		assert.NoError(t, result.Cause)
		assert.Equal(t, CodeRecordInvalid, result.Failure.Error)
		assert.Equal(t, "Record validation errors", result.Failure.Description)
		assert.Equal(t, "BlankValue", result.Failure.Details["base"][0].Error)
	})

	t.Run("folds object errors into the error shape", func(t *testing.T) {
		client := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"title":"Forbidden","message":"You do not have access to this page."}}`))
		})

		result := client.Post(context.Background(), payload)

		require.False(t, result.OK)
		assert.Equal(t, "Forbidden", result.Failure.Error)
		assert.Equal(t, "You do not have access to this page.", result.Failure.Description)
		assert.Equal(t, http.StatusUnauthorized, result.StatusCode)
	})

	t.Run("request key on an error status is not a success", func(t *testing.T) {
		client := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"request":{"id":1}}`))
		})

		assert.False(t, client.Post(context.Background(), payload).OK)
	})

	t.Run("non JSON body becomes a tagged failure", func(t *testing.T) {
		client := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`<html>bad gateway</html>`))
		})

		result := client.Post(context.Background(), payload)

		require.False(t, result.OK)
		assert.True(t, errors.Is(result.Cause, ErrUnexpectedResponse))
		assert.Equal(t, http.StatusBadGateway, result.StatusCode)
	})

	t.Run("connection failure becomes a tagged failure", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		client, err := NewRemoteClient(RemoteConfig{BaseURL: url}, nil)
		require.NoError(t, err)

		result := client.Post(context.Background(), payload)

		require.False(t, result.OK)
		var transportErr *TransportError
		require.True(t, errors.As(result.Cause, &transportErr))
		assert.Equal(t, "POST", transportErr.Operation)
		assert.Equal(t, url+"/api/v2/requests.json", transportErr.URL)
	})

	t.Run("sends token credentials when configured", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "agent@example.com/token", user)
			assert.Equal(t, "s3cret", pass)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"request":{"id":1,"status":"new","description":"x"}}`))
		}))
		defer server.Close()

		client, err := NewRemoteClient(RemoteConfig{BaseURL: server.URL, Email: "agent@example.com", APIToken: "s3cret"}, nil)
		require.NoError(t, err)
		assert.True(t, client.Post(context.Background(), payload).OK)
	})
}
