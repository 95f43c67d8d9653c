package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/concierge/internal/config"
	"github.com/sells-group/concierge/internal/session"
)

func TestTokenMint_RoundTrip(t *testing.T) {
	cfg = &config.Config{Session: config.SessionConfig{Secret: "test-secret"}}
	require.NoError(t, tokenMintCmd.Flags().Set("identity", "cli-user"))
	require.NoError(t, tokenMintCmd.Flags().Set("grant", "verified"))

	var buf bytes.Buffer
	tokenMintCmd.SetOut(&buf)
	defer tokenMintCmd.SetOut(nil)

	require.NoError(t, tokenMintCmd.RunE(tokenMintCmd, nil))

	token := strings.TrimSpace(buf.String())
	require.NotEmpty(t, token)

	claims, err := session.NewService("test-secret").Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "cli-user", claims.Identity)
	assert.Equal(t, session.GrantVerified, claims.Grant)
}

func TestTokenMint_UnknownGrant(t *testing.T) {
	cfg = &config.Config{Session: config.SessionConfig{Secret: "test-secret"}}
	require.NoError(t, tokenMintCmd.Flags().Set("grant", "root"))
	defer tokenMintCmd.Flags().Set("grant", "dev") //nolint:errcheck

	err := tokenMintCmd.RunE(tokenMintCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown grant")
}

func TestTokenMint_MissingSecret(t *testing.T) {
	cfg = &config.Config{}

	err := tokenMintCmd.RunE(tokenMintCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session.secret is required")
}

func TestTokenInspect_PrintsClaims(t *testing.T) {
	cfg = &config.Config{Session: config.SessionConfig{Secret: "test-secret"}}

	token, err := session.NewService("test-secret").Issue("cli-user", session.GrantDev)
	require.NoError(t, err)

	var buf bytes.Buffer
	tokenInspectCmd.SetOut(&buf)
	defer tokenInspectCmd.SetOut(nil)

	require.NoError(t, tokenInspectCmd.RunE(tokenInspectCmd, []string{token}))

	out := buf.String()
	assert.Contains(t, out, "identity: cli-user")
	assert.Contains(t, out, "grant: dev")
	assert.Contains(t, out, "expires: ")
}

func TestTokenInspect_RejectsTampered(t *testing.T) {
	cfg = &config.Config{Session: config.SessionConfig{Secret: "test-secret"}}

	token, err := session.NewService("test-secret").Issue("cli-user", session.GrantDev)
	require.NoError(t, err)

	err = tokenInspectCmd.RunE(tokenInspectCmd, []string{token + "x"})
	assert.ErrorIs(t, err, session.ErrInvalidToken)
}

func TestTokenInspect_WrongSecret(t *testing.T) {
	cfg = &config.Config{Session: config.SessionConfig{Secret: "other-secret"}}

	token, err := session.NewService("test-secret").Issue("cli-user", session.GrantDev)
	require.NoError(t, err)

	err = tokenInspectCmd.RunE(tokenInspectCmd, []string{token})
	assert.ErrorIs(t, err, session.ErrInvalidToken)
}
