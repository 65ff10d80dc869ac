package telemetry

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/mansoorceksport/floorplan/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAppConfigHeaders(t *testing.T) {
	cfg := FromAppConfig(config.OTELConfig{Enabled: true, Endpoint: "collector:4318"})
	assert.Empty(t, cfg.Headers)

	cfg = FromAppConfig(config.OTELConfig{InstanceID: "123", Token: "tok"})
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("123:tok"))
	assert.Equal(t, want, cfg.Headers["Authorization"])

	cfg = FromAppConfig(config.OTELConfig{InstanceID: "123"})
	assert.Empty(t, cfg.Headers, "a partial credential sends nothing")
}

func TestSignalPath(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{prefix: "", want: "/v1/traces"},
		{prefix: "/otlp", want: "/otlp/v1/traces"},
		{prefix: "/otlp/", want: "/otlp/v1/traces"},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			assert.Equal(t, tt.want, Config{PathPrefix: tt.prefix}.signalPath("traces"))
		})
	}
}

func TestInitializeDisabled(t *testing.T) {
	p, err := Initialize(context.Background(), Config{})
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, p.Shutdown(context.Background()))
}
