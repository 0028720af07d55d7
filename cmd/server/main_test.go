package main

import (
	"context"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audittrail-backend/internal/audit"
	"audittrail-backend/internal/models"
	"audittrail-backend/internal/storage"
)

func TestShutdownDrainsAuditBuffer(t *testing.T) {
	store := storage.NewMemoryStore()
	recorder := audit.NewRecorder(store)
	recorder.Start()

	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NewServeMux()}
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.ListenAndServe() }()

	for i := 0; i < 10; i++ {
		recorder.Record(models.AuditLog{AccountID: "a1", Action: "user_login", ResourceType: "user"})
	}

	sigCh := make(chan os.Signal, 1)
	done := shutdownOnSignal(server, recorder, sigCh)
	sigCh <- syscall.SIGTERM

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not complete")
	}
	require.ErrorIs(t, <-serveErr, http.ErrServerClosed)

	// Everything buffered before the signal must be persisted by the time the
	// done channel closes.
	page, _ := models.NewPage(1, 50)
	_, total, err := store.SearchAuditLogs(context.Background(), "a1", models.AuditLogFilter{}, page)
	require.NoError(t, err)
	assert.Equal(t, 10, total)
}
