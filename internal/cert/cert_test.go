package cert_test

import (
	"crypto/x509"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questai/mongodb-tools-api/internal/cert"
)

func TestGenerate(t *testing.T) {
	tlsCert, err := cert.Generate("mongo_db_tools", "tools.internal", "10.0.0.7", "localhost")
	require.NoError(t, err)
	require.Len(t, tlsCert.Certificate, 1)

	parsed, err := x509.ParseCertificate(tlsCert.Certificate[0])
	require.NoError(t, err)

	assert.Equal(t, []string{"mongo_db_tools"}, parsed.Subject.Organization)
	assert.ElementsMatch(t, []string{"localhost", "tools.internal"}, parsed.DNSNames)
	assert.Len(t, parsed.IPAddresses, 3)
	assert.True(t, parsed.IPAddresses[2].Equal(net.ParseIP("10.0.0.7")))
	assert.Contains(t, parsed.ExtKeyUsage, x509.ExtKeyUsageServerAuth)
	assert.WithinDuration(t, time.Now().Add(cert.Duration), parsed.NotAfter, time.Minute)

	require.NoError(t, parsed.VerifyHostname("tools.internal"))
	require.NoError(t, parsed.VerifyHostname("127.0.0.1"))
}
