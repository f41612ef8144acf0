package main

import (
	"testing"
	"time"

	"github.com/pior/memcache-classic"
	"github.com/pior/memcache-classic/codec"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("servers", "a:11211,b:11211:2")
	viper.Set("timeout", "500ms")
	viper.Set("dead-retry", "5s")
	viper.Set("min-compress-len", 256)
	viper.Set("serializer", "json")
	viper.Set("compressor", "zlib")
	viper.Set("log-level", "debug")

	config, servers, err := clientConfig()
	require.NoError(t, err)

	assert.Equal(t, []memcache.Server{{Addr: "a:11211", Weight: 1}, {Addr: "b:11211", Weight: 2}}, servers)
	assert.Equal(t, 500*time.Millisecond, config.Timeout)
	assert.Equal(t, 5*time.Second, config.DeadRetry)
	assert.Equal(t, 256, config.MinCompressLen)
	assert.Equal(t, codec.ProtocolJSON, config.SerializerProtocol)
	assert.Equal(t, "zlib", config.Compressor.Name())
	assert.NotNil(t, config.Logger)
}

func TestClientConfig_Errors(t *testing.T) {
	tests := map[string]map[string]string{
		"servers":    {"servers": "a:b:c:d"},
		"serializer": {"servers": "a", "serializer": "xml"},
		"compressor": {"servers": "a", "compressor": "lz4"},
		"log level":  {"servers": "a", "log-level": "loud"},
	}

	for name, values := range tests {
		t.Run(name, func(t *testing.T) {
			t.Cleanup(viper.Reset)
			viper.Set("log-level", "info")
			for k, v := range values {
				viper.Set(k, v)
			}
			_, _, err := clientConfig()
			assert.Error(t, err)
		})
	}
}
