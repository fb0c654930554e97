package manager

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ollamachat/internal/backend"
	"ollamachat/internal/config"
	"ollamachat/pkg/types"
)

// Chat relays prompt to the backend and returns the stream of chunks. The
// channel yields response chunks in backend order and at most one terminal
// error chunk, then closes. Canceling ctx aborts the backend call and closes
// the channel without further chunks.
func (m *Manager) Chat(ctx context.Context, prompt string) (<-chan types.StreamChunk, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	out := make(chan types.StreamChunk)
	go m.relay(ctx, prompt, out)
	return out, nil
}

type relayStream struct {
	ctx context.Context
	out chan<- types.StreamChunk
	log zerolog.Logger
}

// emit hands c to the consumer; false means the consumer went away.
func (rs *relayStream) emit(c types.StreamChunk) bool {
	select {
	case rs.out <- c:
		return true
	case <-rs.ctx.Done():
		return false
	}
}

func (rs *relayStream) fail(msg string) string {
	if rs.emit(types.ErrorChunk(msg)) {
		return outcomeErrored
	}
	return outcomeCanceled
}

func (m *Manager) relay(ctx context.Context, prompt string, out chan<- types.StreamChunk) {
	defer close(out)
	s := m.store.Snapshot()
	rs := &relayStream{
		ctx: ctx,
		out: out,
		log: m.log.With().Str("stream_id", uuid.NewString()).Str("model", s.ModelName).Logger(),
	}
	outcome := m.stream(rs, s, prompt)
	relayStreamsTotal.WithLabelValues(outcome).Inc()
	rs.log.Debug().Str("outcome", outcome).Msg("stream finished")
}

func (m *Manager) stream(rs *relayStream, s config.Settings, prompt string) string {
	if !m.Check(rs.ctx) {
		// A probe cut short by the caller says nothing about the backend.
		if rs.ctx.Err() != nil {
			return outcomeCanceled
		}
		relayAutostartsTotal.Inc()
		rs.log.Info().Bool("supervised", m.sup.Running()).Msg("backend not reachable, starting it")
		if err := m.sup.Start(rs.ctx, s.ModelName); err != nil {
			if rs.ctx.Err() != nil {
				return outcomeCanceled
			}
			rs.log.Error().Err(err).Msg("backend start failed")
			if rs.emit(types.ErrorChunk(ErrBackendUnavailable.Error())) {
				return outcomeUnavailable
			}
			return outcomeCanceled
		}
	}

	// The timeout covers the whole backend call; chunks are still delivered
	// on the caller's context so the terminal error survives a timeout.
	callCtx, cancel := context.WithTimeout(rs.ctx, s.Timeout())
	defer cancel()

	body, err := m.client.Generate(callCtx, s.BackendURL, backend.GenerateRequest{
		Model:  s.ModelName,
		Prompt: prompt,
		System: s.SystemPrompt,
		Stream: true,
		Options: backend.GenerateOptions{
			Temperature: s.Temperature,
			TopP:        s.TopP,
			NumPredict:  s.MaxTokens,
		},
	})
	if err != nil {
		if rs.ctx.Err() != nil {
			return outcomeCanceled
		}
		var se *backend.StatusError
		if errors.As(err, &se) {
			rs.log.Error().Int("status", se.Code).Str("body", se.Body).Msg("backend generate request failed")
			return rs.fail(fmt.Sprintf("backend request failed: %d %s", se.Code, http.StatusText(se.Code)))
		}
		rs.log.Error().Err(err).Msg("backend generate request failed")
		return rs.fail(err.Error())
	}
	defer body.Close()

	r := bufio.NewReader(body)
	for {
		line, rerr := r.ReadBytes('\n')
		if l := bytes.TrimSpace(line); len(l) > 0 {
			ch, derr := backend.DecodeLine(l)
			switch {
			case derr != nil:
				relayMalformedTotal.Inc()
				rs.log.Warn().Err(derr).Bytes("line", l).Msg("failed to parse backend line")
			case ch.Response != nil:
				if !rs.emit(types.ResponseChunk(*ch.Response)) {
					return outcomeCanceled
				}
				relayChunksTotal.Inc()
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return outcomeCompleted
			}
			if rs.ctx.Err() != nil {
				return outcomeCanceled
			}
			rs.log.Error().Err(rerr).Msg("backend stream aborted")
			return rs.fail(rerr.Error())
		}
	}
}
