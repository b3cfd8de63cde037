// Package app assembles the bot: spelling corpus, engine, command packs,
// transcript store and Matrix front end.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/bdobrica/Kotoba/common/redact"
	"github.com/bdobrica/Kotoba/common/retry"
	"github.com/bdobrica/Kotoba/common/trace"
	"github.com/bdobrica/Kotoba/internal/kotoba/engine"
	"github.com/bdobrica/Kotoba/internal/kotoba/matrix"
	"github.com/bdobrica/Kotoba/internal/kotoba/pack"
	"github.com/bdobrica/Kotoba/internal/kotoba/spelling"
	"github.com/bdobrica/Kotoba/internal/kotoba/transcript"
)

// EngineConfig configures the matcher independently of any front end.
type EngineConfig struct {
	// PackPaths are YAML command-pack files installed in order.
	PackPaths []string
	// WordListPath optionally extends the spelling dictionary.
	WordListPath string
	// MisspellingsPath optionally extends the bundled misspelling table.
	MisspellingsPath string
	// DisableSpelling turns off misspelling-widened matching.
	DisableSpelling bool
}

// Config holds application configuration.
type Config struct {
	Engine       EngineConfig
	DatabasePath string
	Matrix       matrix.Config
}

// App is the running bot.
type App struct {
	config *Config
	engine *engine.Engine
	store  *transcript.Store
	client *matrix.Client
}

// BuildEngine assembles a corpus-backed engine and installs the configured
// packs. The REPL uses this directly; the Matrix bot wraps it in New.
func BuildEngine(cfg EngineConfig) (*engine.Engine, error) {
	var opts []engine.Option
	if !cfg.DisableSpelling {
		corpus, err := spelling.Default()
		if err != nil {
			return nil, fmt.Errorf("load default misspelling table: %w", err)
		}
		if cfg.WordListPath != "" {
			if err := corpus.LoadWordFile(cfg.WordListPath); err != nil {
				return nil, err
			}
		}
		if cfg.MisspellingsPath != "" {
			if err := corpus.LoadMisspellingFile(cfg.MisspellingsPath); err != nil {
				return nil, err
			}
		}
		opts = append(opts, engine.WithSpeller(corpus))
	}

	e, err := engine.New(opts...)
	if err != nil {
		return nil, err
	}
	for _, path := range cfg.PackPaths {
		p, err := pack.Load(path)
		if err != nil {
			return nil, err
		}
		if err := pack.Install(e, p); err != nil {
			return nil, err
		}
		slog.Info("installed command pack", "pack", p.Metadata.Name, "path", path,
			"intents", len(p.Intents), "questions", len(p.Questions))
	}
	return e, nil
}

// New builds the application.
func New(cfg *Config) (*App, error) {
	e, err := BuildEngine(cfg.Engine)
	if err != nil {
		return nil, err
	}

	store, err := transcript.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	matrixCfg := cfg.Matrix
	matrixCfg.DB = store.DB()
	client, err := matrix.New(&matrixCfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &App{config: cfg, engine: e, store: store, client: client}, nil
}

// Engine exposes the assembled engine, e.g. for registering Go-native
// intents alongside the declarative packs.
func (a *App) Engine() *engine.Engine { return a.engine }

// Run starts the Matrix sync loop and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.client.Start(ctx, a.onMessage); err != nil {
		return fmt.Errorf("start Matrix client: %w", err)
	}
	slog.Info("bot is up", "user", a.config.Matrix.UserID, "rooms", len(a.config.Matrix.Rooms))

	<-ctx.Done()
	slog.Info("shutting down")
	return nil
}

// Stop stops the Matrix client and closes the transcript store.
func (a *App) Stop() {
	a.client.Stop()
	if err := a.store.Close(); err != nil {
		slog.Error("close transcript store", "err", err)
	}
}

// onMessage bridges one room message into the engine and answers in-room.
// The user key is roomID:sender so dialogs in different rooms with the same
// person stay independent.
func (a *App) onMessage(ctx context.Context, msg matrix.Message) {
	traceID := trace.GenerateID()
	ctx = trace.WithTraceID(ctx, traceID)
	userKey := msg.RoomID + ":" + msg.Sender

	_ = a.client.SetTyping(ctx, msg.RoomID, true, 30*time.Second)
	defer a.client.SetTyping(ctx, msg.RoomID, false, 0)

	reply := a.engine.Handle(ctx, engine.Request{
		Command: msg.Body,
		UserKey: userKey,
		Data:    msg,
		HasData: true,
	})
	res, err := reply.Wait(ctx)

	a.record(ctx, traceID, userKey, msg.Body, res, err)

	switch {
	case err == nil, errors.Is(err, engine.ErrAnswerRejected), errors.Is(err, engine.ErrNoMatch):
		// Matched commands, failed answers and the not-found handler all may
		// carry a response for the room.
		if res.Response != "" {
			sendErr := retry.Do(ctx, retry.DefaultConfig, func() error {
				return a.client.SendNotice(ctx, msg.RoomID, res.Response)
			})
			if sendErr != nil {
				slog.Error("send reply", "trace_id", traceID, "room", msg.RoomID,
					"err", a.redacted(sendErr))
			}
		}
	default:
		slog.Error("handle command failed", "trace_id", traceID, "user", userKey,
			"err", a.redacted(err))
	}
}

// redacted strips the Matrix access token from an error before it reaches a
// log line or the transcript.
func (a *App) redacted(err error) string {
	return redact.String(err.Error(), a.config.Matrix.AccessToken)
}

func (a *App) record(ctx context.Context, traceID, userKey, command string, res engine.Result, err error) {
	entry := &transcript.Entry{
		TraceID: traceID,
		UserKey: userKey,
		Command: command,
	}
	if res.Name != "" {
		entry.Matched = sql.NullString{String: res.Name, Valid: true}
		entry.Kind = kindLabel(res.Kind)
	}
	if res.Response != "" {
		entry.Reply = sql.NullString{String: res.Response, Valid: true}
	}
	switch {
	case err == nil && res.Kind == engine.KindCancelled:
		entry.Outcome = transcript.OutcomeCancelled
	case err == nil && res.Kind == engine.KindQuestion:
		entry.Outcome = transcript.OutcomeAnswered
	case err == nil:
		entry.Outcome = transcript.OutcomeMatched
	case errors.Is(err, engine.ErrNoMatch):
		entry.Outcome = transcript.OutcomeNoMatch
	case errors.Is(err, engine.ErrAnswerRejected):
		entry.Outcome = transcript.OutcomeRejected
	default:
		entry.Outcome = transcript.OutcomeError
		entry.ErrorMessage = sql.NullString{String: a.redacted(err), Valid: true}
	}

	if err := a.store.Record(ctx, entry); err != nil {
		slog.Error("record transcript", "trace_id", traceID, "err", err)
	}
}

func kindLabel(k engine.Kind) string {
	switch k {
	case engine.KindIntent:
		return "intent"
	case engine.KindQuestion:
		return "question"
	case engine.KindCancelled:
		return "cancelled"
	default:
		return ""
	}
}
