package sshserver

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	gliderssh "github.com/gliderlabs/ssh"
	"golang.org/x/crypto/ssh"

	"pkt.systems/marquee/internal/eventbus"
	"pkt.systems/marquee/internal/logx"
	"pkt.systems/marquee/schema"
	"pkt.systems/pslog"
)

// Server exposes the marquee display over SSH.
type Server struct {
	Addr               string
	HostKeyPath        string
	AuthorizedKeysPath string
	Listener           net.Listener
	Controller         Controller
	EventBus           *eventbus.Bus
	Theme              schema.ThemeName
	IdleTimeout        time.Duration
	DisableAuditTrails bool
	logger             pslog.Logger
}

// NewServer builds a server from cfg.
func NewServer(cfg Config, controller Controller, bus *eventbus.Bus, logger pslog.Logger) *Server {
	return &Server{
		Addr:               cfg.Addr,
		HostKeyPath:        cfg.HostKeyPath,
		AuthorizedKeysPath: cfg.AuthorizedKeysPath,
		Controller:         controller,
		EventBus:           bus,
		Theme:              cfg.Theme,
		IdleTimeout:        cfg.IdleTimeout,
		DisableAuditTrails: cfg.DisableAuditTrails,
		logger:             logger,
	}
}

// ListenAndServe starts the SSH server and shuts down on context cancellation.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.logger == nil {
		s.logger = pslog.Ctx(ctx)
	}
	if s.Controller == nil {
		return errors.New("ssh controller is required")
	}
	if s.EventBus == nil {
		return errors.New("ssh event bus is required")
	}
	if _, err := LoadAuthorizedKeys(s.AuthorizedKeysPath); err != nil {
		return err
	}

	signer, err := EnsureHostKey(s.HostKeyPath)
	if err != nil {
		return err
	}

	server := &gliderssh.Server{
		Addr:             s.Addr,
		Handler:          s.handleSession,
		PublicKeyHandler: s.handlePublicKey,
	}
	server.AddHostKey(signer)

	errCh := make(chan error, 1)
	go func() {
		if s.Listener != nil {
			errCh <- server.Serve(s.Listener)
			return
		}
		errCh <- server.ListenAndServe()
	}()
	s.logger.Info("ssh listen", "addr", s.listenAddr(), "fingerprint", ssh.FingerprintSHA256(signer.PublicKey()))

	select {
	case <-ctx.Done():
		_ = server.Close()
		return nil
	case err := <-errCh:
		if errors.Is(err, gliderssh.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) listenAddr() string {
	if s.Listener != nil {
		return s.Listener.Addr().String()
	}
	return s.Addr
}

// handlePublicKey re-reads the authorized keys file on every attempt so
// edits apply without a restart.
func (s *Server) handlePublicKey(ctx gliderssh.Context, key gliderssh.PublicKey) bool {
	log := s.logger.With("user", ctx.User(), "remote", remoteAddr(ctx), "fingerprint", ssh.FingerprintSHA256(key))
	keys, err := LoadAuthorizedKeys(s.AuthorizedKeysPath)
	if err != nil {
		log.Warn("ssh pubkey rejected", "err", err)
		return false
	}
	if _, ok := keys[string(key.Marshal())]; !ok {
		log.Warn("ssh pubkey rejected", "reason", "no matching key")
		return false
	}
	log.Info("ssh pubkey accepted")
	return true
}

func remoteAddr(ctx gliderssh.Context) string {
	if ctx == nil || ctx.RemoteAddr() == nil {
		return ""
	}
	return ctx.RemoteAddr().String()
}

func (s *Server) handleSession(sess gliderssh.Session) {
	ctx := pslog.ContextWithLogger(sess.Context(), s.logger)
	log := logx.WithSession(ctx, sess.Context().SessionID(), sess.User()).With("remote", sess.RemoteAddr().String())
	ctx = logx.ContextWithSessionLogger(ctx, log, sess.Context().SessionID())

	pty, winCh, ok := sess.Pty()
	if !ok {
		log.Info("ssh session rejected", "reason", "pty required")
		_, _ = io.WriteString(sess, "pty required\n")
		_ = sess.Exit(1)
		return
	}

	log.Info("ssh session opened", "term", pty.Term)
	events, unsubscribe := s.EventBus.Subscribe()
	defer unsubscribe()
	initial, _ := s.EventBus.Snapshot(eventbus.EventRender)

	ui := newTerminalSession(sess, s.Controller, events, s.Theme, log)
	ui.idle = s.IdleTimeout
	ui.audit = !s.DisableAuditTrails
	ui.SetSize(pty.Window.Width, pty.Window.Height)
	code := 0
	if err := ui.Run(ctx, initial, winCh); err != nil {
		code = 1
	}
	_ = sess.Exit(code)
	log.Info("ssh session closed", "term", pty.Term)
}
