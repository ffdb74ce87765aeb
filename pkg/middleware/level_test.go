package middleware

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func Test_levelOf(t *testing.T) {
	t.Parallel()
	require.Equal(t, zapcore.InfoLevel, levelOf(http.StatusOK))
	require.Equal(t, zapcore.WarnLevel, levelOf(http.StatusConflict))
	require.Equal(t, zapcore.ErrorLevel, levelOf(http.StatusBadGateway))
}
