package chart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// closeBeacon reports to the server when the page goes away
const closeBeacon = `<script>
window.addEventListener("pagehide", function () { navigator.sendBeacon("/closed"); });
</script>
`

func withCloseBeacon(page []byte) []byte {
	i := bytes.LastIndex(page, []byte("</body>"))
	if i < 0 {
		return append(page, closeBeacon...)
	}
	out := make([]byte, 0, len(page)+len(closeBeacon))
	out = append(out, page[:i]...)
	out = append(out, closeBeacon...)
	return append(out, page[i:]...)
}

// serve shows page on a loopback server until the page reports it was
// closed or ctx is done
func (r *Renderer) serve(ctx context.Context, page []byte) error {
	listener, err := net.Listen("tcp", r.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	closed := make(chan struct{})
	var once sync.Once

	router := mux.NewRouter()
	router.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	}).Methods("GET")
	router.HandleFunc("/closed", func(w http.ResponseWriter, req *http.Request) {
		once.Do(func() { close(closed) })
		w.WriteHeader(http.StatusNoContent)
	}).Methods("POST")

	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	url := "http://" + listener.Addr().String() + "/"
	fmt.Fprintf(r.out, "Chart available at %s (close the page to continue)\n", url)
	if r.config.OpenBrowser {
		if err := r.open(url); err != nil {
			r.log.Warn("Could not open browser", zap.String("url", url), zap.Error(err))
		}
	}

	select {
	case <-closed:
		r.log.Debug("Chart page closed")
	case <-ctx.Done():
		r.log.Debug("Chart interrupted", zap.Error(ctx.Err()))
	case err = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	if err != nil {
		return fmt.Errorf("chart server: %w", err)
	}
	return nil
}
