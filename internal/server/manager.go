// Package server runs the TCP listener and owns the lifetime of every
// client connection and its session.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ingl3585/xgb-model/internal/domain/repository"
	"github.com/ingl3585/xgb-model/internal/session"
	"github.com/ingl3585/xgb-model/pkg/logger"
)

// Config holds listener settings.
type Config struct {
	Host           string
	Port           int
	ReadBufferSize int
	// ReadTimeout bounds each blocking read/accept so the loops can
	// observe shutdown. It is not an idle-kick: a timed-out read simply
	// retries.
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// SessionInfo is a point-in-time view of one live session for the admin API.
type SessionInfo struct {
	ID         string    `json:"id"`
	RemoteAddr string    `json:"remote_addr"`
	Phase      string    `json:"phase"`
	Bars       int       `json:"bars"`
	Started    time.Time `json:"started"`
}

// Manager accepts TCP clients and drives one session per connection.
type Manager struct {
	cfg        Config
	sessionCfg session.Config

	log     *logger.Logger
	metrics repository.Metrics
	audit   repository.AuditSink

	listener net.Listener
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	seq      atomic.Uint64

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// NewManager builds the manager; Start must be called before it serves.
func NewManager(cfg Config, sessionCfg session.Config, log *logger.Logger, metrics repository.Metrics, audit repository.AuditSink) *Manager {
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = 4096
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	return &Manager{
		cfg:        cfg,
		sessionCfg: sessionCfg,
		log:        log,
		metrics:    metrics,
		audit:      audit,
		sessions:   make(map[string]*session.Session),
	}
}

// Start binds the listener and launches the accept loop. It returns once
// the listener is bound; serving continues until ctx is canceled or Stop
// is called.
func (m *Manager) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	m.listener = ln

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(1)
	go m.acceptLoop(runCtx)

	m.log.Info("tcp server listening", logger.String("addr", ln.Addr().String()))
	return nil
}

// Addr reports the bound listener address, useful when Port is 0.
func (m *Manager) Addr() net.Addr {
	if m.listener == nil {
		return nil
	}
	return m.listener.Addr()
}

func (m *Manager) acceptLoop(ctx context.Context) {
	defer m.wg.Done()
	for {
		if tl, ok := m.listener.(*net.TCPListener); ok {
			_ = tl.SetDeadline(time.Now().Add(m.cfg.ReadTimeout))
		}
		conn, err := m.listener.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				select {
				case <-ctx.Done():
					return
				default:
					continue
				}
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			m.log.Error("accept failed", logger.Error(err))
			return
		}

		m.wg.Add(1)
		go m.handleConn(ctx, conn)
	}
}

func (m *Manager) handleConn(ctx context.Context, conn net.Conn) {
	defer m.wg.Done()
	defer conn.Close()

	id := fmt.Sprintf("s-%d", m.seq.Add(1))
	sess := session.New(id, conn.RemoteAddr().String(), m.sessionCfg, m.log, m.metrics, m.audit)

	m.register(sess)
	defer m.unregister(sess)

	m.metrics.SessionOpened()
	defer m.metrics.SessionClosed()

	log := m.log.With(logger.String("session", id), logger.String("remote", conn.RemoteAddr().String()))
	log.Info("client connected")

	buf := make([]byte, m.cfg.ReadBufferSize)
	for {
		select {
		case <-ctx.Done():
			log.Info("client dropped on shutdown")
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(m.cfg.ReadTimeout))
		n, err := conn.Read(buf)
		if n > 0 {
			responses := sess.HandleChunk(ctx, buf[:n])
			if werr := writeResponses(conn, responses); werr != nil {
				log.Warn("write failed, closing session", logger.Error(werr))
				return
			}
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			log.Info("client disconnected", logger.Error(err), logger.Int("bars", sess.Bars()))
			return
		}
	}
}

// writeResponses emits one newline-terminated token per response, in
// order. Any write error ends the session.
func writeResponses(conn net.Conn, responses []string) error {
	for _, r := range responses {
		if _, err := conn.Write(append([]byte(r), '\n')); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) register(s *session.Session) {
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
}

func (m *Manager) unregister(s *session.Session) {
	m.mu.Lock()
	delete(m.sessions, s.ID())
	m.mu.Unlock()
}

// Sessions snapshots every live session for the admin API.
func (m *Manager) Sessions() []SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, SessionInfo{
			ID:         s.ID(),
			RemoteAddr: s.RemoteAddr(),
			Phase:      s.Phase().String(),
			Bars:       s.Bars(),
			Started:    s.Started(),
		})
	}
	return out
}

// Stop closes the listener and waits for in-flight connections to drain,
// bounded by the configured shutdown timeout.
func (m *Manager) Stop(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	if m.listener != nil {
		_ = m.listener.Close()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(m.cfg.ShutdownTimeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return errors.New("shutdown timed out waiting for connections")
	case <-ctx.Done():
		return ctx.Err()
	}
}
