package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JayRileyDev/supptraq-claude-sub000/internal/domain"
	"github.com/JayRileyDev/supptraq-claude-sub000/internal/httpapi"
)

const exportCSV = `AB-SA-T000001
1/15/24,,,,,,,,,,,,,,,,,35.0%
Sale Ticket,,,,,,,,,,,,,,,,,,,150.00
JANE
CRE-500,2
AB-SA-T000002
1/16/24
Sale Ticket,,,,,,,,,,,,,,,,,,,40.00
MIKE
BAR-12,1
`

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ADDR", "")
}

func writeExport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tickets.csv")
	require.NoError(t, os.WriteFile(path, []byte(exportCSV), 0o600))
	return path
}

func run(t *testing.T, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := newRootCmd(out)
	cmd.SetArgs(args)
	return out, cmd.Execute()
}

func TestParsePrintsTickets(t *testing.T) {
	isolateEnv(t)
	out, err := run(t, "parse", "--file", writeExport(t))
	require.NoError(t, err)

	var body struct {
		Tickets []domain.ParsedTicket `json:"tickets"`
		Errors  []string              `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &body))
	require.Len(t, body.Tickets, 2)
	assert.Empty(t, body.Errors)
	assert.Equal(t, "JANE", body.Tickets[0].SalesRep)
	assert.Equal(t, "Creatine Monohydrate 500g", body.Tickets[0].Items[0].ProductName)
}

func TestImportWritesTenantLedger(t *testing.T) {
	isolateEnv(t)
	out, err := run(t, "import", "--file", writeExport(t), "--org", "org-1", "--franchise", "fr-1", "--chunk-rows", "5")
	require.NoError(t, err)

	var resp domain.ImportResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, 2, resp.TicketsParsed)
	assert.Equal(t, 2, resp.Inserted.Sale)
	assert.Zero(t, resp.Skipped)
}

func TestImportRequiresTenantFlags(t *testing.T) {
	isolateEnv(t)
	_, err := run(t, "import", "--file", writeExport(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "org")
}

func TestSummaryRejectsBadDate(t *testing.T) {
	isolateEnv(t)
	_, err := run(t, "summary", "--org", "org-1", "--franchise", "fr-1", "--from", "2024/01/01")
	require.Error(t, err)
}

func TestSummaryOnEmptyLedger(t *testing.T) {
	isolateEnv(t)
	out, err := run(t, "summary", "--org", "org-1", "--franchise", "fr-1")
	require.NoError(t, err)

	var summary domain.MetricsSummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	assert.Zero(t, summary.TicketCount)
}

func TestTokenMintsVerifiableToken(t *testing.T) {
	secret := strings.Repeat("s", 32)
	t.Setenv("AUTH_SECRET", secret)

	out, err := run(t, "token", "--org", "org-1", "--franchise", "fr-1", "--role", "viewer")
	require.NoError(t, err)

	var body map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &body))

	tokens, err := httpapi.NewTokenManager(secret, 0)
	require.NoError(t, err)
	actor, err := tokens.ParseToken(body["access_token"])
	require.NoError(t, err)
	assert.Equal(t, domain.Tenant{OrgID: "org-1", FranchiseID: "fr-1"}, actor.Tenant)
	assert.Equal(t, httpapi.RoleViewer, actor.Role)
}

func TestTokenRefusesWeakSecret(t *testing.T) {
	t.Setenv("AUTH_SECRET", "short")
	_, err := run(t, "token", "--org", "org-1", "--franchise", "fr-1")
	require.ErrorIs(t, err, httpapi.ErrWeakSecret)
}
