package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// callbackListener serves exactly one authorization redirect. The code
// travels through a single-slot channel created fresh for every
// authorization attempt and thrown away with the listener.
type callbackListener struct {
	srv     *http.Server
	results chan callbackResult
}

type callbackResult struct {
	code string
	err  error
}

func newCallbackListener(port int) (*callbackListener, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("failed to open callback listener: %w", err)
	}

	l := &callbackListener{
		results: make(chan callbackResult, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", l.handleCallback)
	l.srv = &http.Server{Handler: mux}

	go func() {
		_ = l.srv.Serve(ln)
	}()

	return l, nil
}

func (l *callbackListener) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		http.Error(w, "authorization denied", http.StatusBadRequest)
		l.deliver(callbackResult{err: fmt.Errorf("authorization rejected: %s", errParam)})
		return
	}

	code := query.Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		l.deliver(callbackResult{err: errors.New("redirect carried no authorization code")})
		return
	}

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<html><body><h2>Authorization complete. You can close this window.</h2></body></html>`)
	l.deliver(callbackResult{code: code})
}

func (l *callbackListener) deliver(res callbackResult) {
	select {
	case l.results <- res:
	default:
	}
}

// wait blocks until a code arrives, the timeout elapses, or the context
// is cancelled. The listener is single-use either way.
func (l *callbackListener) wait(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-l.results:
		if res.err != nil {
			return "", res.err
		}
		return res.code, nil
	case <-timer.C:
		return "", ErrAuthTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (l *callbackListener) close() {
	_ = l.srv.Close()
}
