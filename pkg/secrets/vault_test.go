package secrets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vaultServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/secret/data/assessment", r.URL.Path)
		assert.Equal(t, "token", r.Header.Get("X-Vault-Token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestApply_Disabled(t *testing.T) {
	result, err := Apply(context.Background(), Config{})
	require.NoError(t, err)
	assert.False(t, result.Enabled)
}

func TestApply_Incomplete(t *testing.T) {
	_, err := Apply(context.Background(), Config{Enabled: true, Addr: "http://vault"})
	assert.ErrorContains(t, err, "incomplete")
}

func TestApply_LoadsManagedKeysOnly(t *testing.T) {
	server := vaultServer(t, `{"data": {"data": {"OPENAI_API_KEY": "sk-test", "DB_PASSWORD": "pw", "UNRELATED": "x"}}}`)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("DB_PASSWORD", "already-set")

	result, err := Apply(context.Background(), Config{
		Enabled: true, Addr: server.URL, Token: "token", Mount: "secret", Path: "assessment", KVVersion: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"OPENAI_API_KEY"}, result.Loaded)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Ignored)
	assert.Equal(t, "sk-test", os.Getenv("OPENAI_API_KEY"))
	assert.Equal(t, "already-set", os.Getenv("DB_PASSWORD"))
}

func TestApply_Overwrite(t *testing.T) {
	server := vaultServer(t, `{"data": {"data": {"REDIS_PASSWORD": "from-vault"}}}`)
	t.Setenv("REDIS_PASSWORD", "local")

	_, err := Apply(context.Background(), Config{
		Enabled: true, Addr: server.URL, Token: "token", Mount: "secret", Path: "assessment", KVVersion: 2, Overwrite: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "from-vault", os.Getenv("REDIS_PASSWORD"))
}

func TestApply_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "permission denied", http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	_, err := Apply(context.Background(), Config{
		Enabled: true, Addr: server.URL, Token: "token", Mount: "secret", Path: "assessment", KVVersion: 2,
	})
	assert.ErrorContains(t, err, "403")
}

func TestSecretURL(t *testing.T) {
	url, err := secretURL("http://vault:8200/", "/secret/", "/assessment", 2)
	require.NoError(t, err)
	assert.Equal(t, "http://vault:8200/v1/secret/data/assessment", url)

	url, err = secretURL("http://vault:8200", "kv", "assessment", 1)
	require.NoError(t, err)
	assert.Equal(t, "http://vault:8200/v1/kv/assessment", url)
}

func TestSecretData_KVv1(t *testing.T) {
	data, err := secretData(map[string]interface{}{"data": map[string]interface{}{"DB_USER": "svc"}}, 1)
	require.NoError(t, err)
	assert.Equal(t, "svc", data["DB_USER"])

	_, err = secretData(map[string]interface{}{}, 2)
	assert.Error(t, err)
}
