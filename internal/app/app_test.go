package app

import (
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diabesafe/backend/internal/config"
	"github.com/diabesafe/backend/internal/logger"
	"github.com/diabesafe/backend/internal/mockstorage"
)

func TestRunClosesStorageOnServerError(t *testing.T) {
	require.NoError(t, logger.Init("debug"))

	// occupy a port so ListenAndServe fails straight away
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	db := &mockstorage.StorageMock{}
	db.On("Close").Return(nil)

	theApp := &App{
		cfg:         &config.Config{RunAddr: listener.Addr().String()},
		db:          db,
		httpHandler: http.NotFoundHandler(),
	}

	err = theApp.Run()
	assert.Error(t, err)
	db.AssertCalled(t, "Close")
}
