// Copyright 2021 FerretDB Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pipeline wires one Input/Splitter/Decoder/Encoder/Merger/Output
// together from configuration, the way cmd/ferretdb's registeredHandlers
// map wires one storage handler from a --handler flag.
package pipeline

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cdumay/flowgger/internal/config"
	"github.com/cdumay/flowgger/internal/decoder"
	"github.com/cdumay/flowgger/internal/encoder"
	"github.com/cdumay/flowgger/internal/errkind"
	"github.com/cdumay/flowgger/internal/input"
	"github.com/cdumay/flowgger/internal/logging"
	"github.com/cdumay/flowgger/internal/merger"
	"github.com/cdumay/flowgger/internal/metrics"
	"github.com/cdumay/flowgger/internal/output"
	"github.com/cdumay/flowgger/internal/queue"
	"github.com/cdumay/flowgger/internal/record"
	"github.com/cdumay/flowgger/internal/splitter"
)

// Pipeline ties together one input, the queue, and one output.
type Pipeline struct {
	in      input.Input
	out     output.Sink
	q       *queue.Queue
	l       *slog.Logger
	Metrics *metrics.Metrics
}

// inputConstructors mirrors the teacher's registeredHandlers pattern: one
// entry per input.type value, each knowing how to build that Input from
// config plus the shared frame handler. "tcp"/"tls" differ only in whether
// the listener wraps connections in TLS.
var inputConstructors = map[string]func(cfg *config.Config, listen string, handle input.FrameHandler, newCapnp func() *splitter.CapnpHandler, l *slog.Logger) (input.Input, error){
	"udp": func(_ *config.Config, listen string, handle input.FrameHandler, _ func() *splitter.CapnpHandler, l *slog.Logger) (input.Input, error) {
		return &input.UDPInput{Addr: listen, Handle: handle, L: l}, nil
	},
	"tcp": func(cfg *config.Config, listen string, handle input.FrameHandler, newCapnp func() *splitter.CapnpHandler, l *slog.Logger) (input.Input, error) {
		return buildStreamInput(cfg, listen, nil, handle, newCapnp, l)
	},
	"tls": func(cfg *config.Config, listen string, handle input.FrameHandler, newCapnp func() *splitter.CapnpHandler, l *slog.Logger) (input.Input, error) {
		tlsCfg, err := serverTLSConfig(cfg)
		if err != nil {
			return nil, err
		}

		return buildStreamInput(cfg, listen, tlsCfg, handle, newCapnp, l)
	},
}

func buildStreamInput(
	cfg *config.Config,
	listen string,
	tlsCfg *tls.Config,
	handle input.FrameHandler,
	newCapnp func() *splitter.CapnpHandler,
	l *slog.Logger,
) (input.Input, error) {
	si := &input.StreamInput{Addr: listen, TLS: tlsCfg, Handle: handle, L: l}

	framingKind, err := cfg.RequireString("input.framing")
	if err != nil {
		return nil, err
	}

	if framingKind == "capnp" {
		si.NewCapnpHandler = newCapnp
		return si, nil
	}

	if _, err := splitter.New(framingKind); err != nil {
		return nil, err
	}

	si.NewSplitter = func() splitter.Splitter {
		sp, _ := splitter.New(framingKind)
		return sp
	}

	return si, nil
}

func serverTLSConfig(cfg *config.Config) (*tls.Config, error) {
	certFile, err := cfg.RequireString("input.tls_cert_file")
	if err != nil {
		return nil, err
	}

	keyFile, err := cfg.RequireString("input.tls_key_file")
	if err != nil {
		return nil, err
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, errkind.New(errkind.Config, "pipeline: load input TLS material: %s", err)
	}

	return &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}, nil
}

func clientTLSConfig(cfg *config.Config) (*tls.Config, error) {
	certFile, hasCert := cfg.String("output.tls_cert_file")
	keyFile, hasKey := cfg.String("output.tls_key_file")
	caFile, hasCA := cfg.String("output.tls_ca_file")

	if !hasCert && !hasKey && !hasCA {
		return nil, nil //nolint:nilnil // absent TLS config is not an error: stream output defaults to plaintext
	}

	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if hasCert && hasKey {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, errkind.New(errkind.Config, "pipeline: load output TLS material: %s", err)
		}

		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	if hasCA {
		pem, err := os.ReadFile(caFile)
		if err != nil {
			return nil, errkind.New(errkind.Config, "pipeline: read output CA file: %s", err)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errkind.New(errkind.Config, "pipeline: output CA file %s has no usable certificates", caFile)
		}

		tlsCfg.RootCAs = pool
	}

	return tlsCfg, nil
}

// Build resolves every *.type/*.format/*.framing key against the package's
// small per-kind registries, constructs the bounded queue, and returns a
// ready-to-run Pipeline. registerer may be nil to skip metrics registration
// (as in tests).
func Build(cfg *config.Config, l *slog.Logger, registerer prometheus.Registerer) (*Pipeline, error) {
	q := queue.New(cfg.IntDefault("queue.capacity", 4096))

	m := metrics.New(func() float64 { return float64(q.Len()) })
	if registerer != nil {
		if err := registerer.Register(m); err != nil {
			return nil, errkind.Wrap(errkind.Config, err)
		}
	}

	dec, err := decoder.New(cfg)
	if err != nil {
		return nil, err
	}

	enc, err := encoder.New(cfg)
	if err != nil {
		return nil, err
	}

	inputFormat := cfg.StringDefault("input.format", "")
	outputFormat := cfg.StringDefault("output.format", "")

	handle := func(ctx context.Context, frame []byte) error {
		rec, err := dec.Decode(frame)
		if err != nil {
			m.RecordsDropped.WithLabelValues("decode", inputFormat).Inc()
			return err
		}

		m.RecordsDecoded.WithLabelValues(inputFormat).Inc()

		return encodeAndEnqueue(ctx, rec, enc, outputFormat, q, m)
	}

	inputType, err := cfg.RequireString("input.type")
	if err != nil {
		return nil, err
	}

	ctor, ok := inputConstructors[inputType]
	if !ok {
		return nil, errkind.New(errkind.Config, "pipeline: unknown input.type %q", inputType)
	}

	listen := cfg.StringDefault("input.listen", "0.0.0.0:514")

	newCapnp := func() *splitter.CapnpHandler {
		return &splitter.CapnpHandler{
			Encode: func(r *record.Record) ([]byte, error) {
				out, err := enc.Encode(r)
				if err == nil {
					m.RecordsEncoded.WithLabelValues(outputFormat).Inc()
				}

				return out, err
			},
			Enqueue: q.Send,
			L:       l,
		}
	}

	in, err := ctor(cfg, listen, handle, newCapnp, l)
	if err != nil {
		return nil, err
	}

	out, err := buildOutput(cfg, q, l)
	if err != nil {
		return nil, err
	}

	return &Pipeline{in: in, out: out, q: q, l: l, Metrics: m}, nil
}

func encodeAndEnqueue(ctx context.Context, rec *record.Record, enc encoder.Encoder, codec string, q *queue.Queue, m *metrics.Metrics) error {
	out, err := enc.Encode(rec)
	if err != nil {
		m.RecordsDropped.WithLabelValues("encode", "").Inc()
		return err
	}

	m.RecordsEncoded.WithLabelValues(codec).Inc()

	return q.Send(ctx, out)
}

func buildOutput(cfg *config.Config, q *queue.Queue, l *slog.Logger) (output.Sink, error) {
	outputType, err := cfg.RequireString("output.type")
	if err != nil {
		return nil, err
	}

	var mergeFn func([]byte) []byte

	if framingKind, ok := cfg.String("output.framing"); ok && framingKind != "" {
		if outputType == "kafka" {
			l.Warn("output.framing is ignored: kafka output does not support merging", "framing", framingKind)
		} else {
			mg, err := merger.New(framingKind)
			if err != nil {
				return nil, err
			}

			mergeFn = mg.Merge
		}
	}

	switch outputType {
	case "stream":
		addr, err := cfg.RequireString("output.listen")
		if err != nil {
			return nil, err
		}

		tlsCfg, err := clientTLSConfig(cfg)
		if err != nil {
			return nil, err
		}

		ceil := cfg.DurationDefault("output.reconnect_backoff_max", 30*time.Second)

		return &output.StreamOutput{Addr: addr, TLS: tlsCfg, Merge: mergeFn, BackoffCeil: ceil, L: l}, nil

	case "kafka":
		topic, err := cfg.RequireString("output.topic")
		if err != nil {
			return nil, err
		}

		opts := cfg.StringMapDefault("output.librdkafka")

		brokers := brokersFromLibrdkafka(opts)
		if len(brokers) == 0 {
			return nil, errkind.New(errkind.Config, "pipeline: output.librdkafka.bootstrap.servers is required for kafka output")
		}

		workers := cfg.IntDefault("output.threads", 1)

		return &output.KafkaOutput{Brokers: brokers, Topic: topic, Librdkafka: opts, Workers: workers, L: l}, nil

	case "debug":
		return &output.DebugOutput{W: os.Stdout}, nil

	default:
		return nil, errkind.New(errkind.Config, "pipeline: unknown output.type %q", outputType)
	}
}

func brokersFromLibrdkafka(opts map[string]string) []string {
	v, ok := opts["bootstrap.servers"]
	if !ok || v == "" {
		return nil
	}

	parts := strings.Split(v, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	return parts
}

// Run blocks until both the input and output stop, which normally only
// happens when ctx is canceled.
func (p *Pipeline) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	var outErr error

	wg.Add(2)

	go func() {
		defer wg.Done()

		if err := p.in.Run(ctx); err != nil {
			p.l.ErrorContext(ctx, "input stopped", logging.Error(err))
		}
	}()

	go func() {
		defer wg.Done()

		outErr = p.out.Run(ctx, p.q.Receive)
	}()

	wg.Wait()

	return outErr
}
