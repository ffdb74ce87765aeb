package mailer

import (
	"context"
	"net"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestSMTPSender_Send(t *testing.T) {
	t.Parallel()
	msg := Message{To: "ana@example.org", Subject: "hola", TextBody: "hola"}

	disabled := NewSMTPSender(Config{})
	require.ErrorIs(t, disabled.Send(context.Background(), msg), ErrDisabled)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	s := NewSMTPSender(Config{Host: "127.0.0.1", Port: port, From: "lib@example.org"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.True(t, errors.Is(s.Send(ctx, msg), context.Canceled))

	err = s.Send(context.Background(), msg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "send to ana@example.org")
}
