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

package output

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"

	"github.com/cdumay/flowgger/internal/errkind"
	"github.com/cdumay/flowgger/internal/logging"
)

// KafkaOutput produces payloads to a topic using a small worker pool, each
// worker named "kafka-output-<id>". Merging is declared incompatible with
// Kafka output: a configured merger is ignored here, not applied, and the
// caller logs a warning rather than failing startup.
type KafkaOutput struct {
	Brokers    []string
	Topic      string
	Librdkafka map[string]string
	Workers    int
	L          *slog.Logger
}

func (o *KafkaOutput) Run(ctx context.Context, recv RecvFunc) error {
	opts := []kgo.Opt{
		kgo.SeedBrokers(o.Brokers...),
		kgo.DefaultProduceTopic(o.Topic),
	}
	opts = append(opts, translateLibrdkafkaOpts(o.Librdkafka, o.L)...)

	cl, err := kgo.NewClient(opts...)
	if err != nil {
		return errkind.Wrap(errkind.Transport, err)
	}

	defer cl.Close()

	o.checkTopic(ctx, cl)

	workers := o.Workers
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			name := fmt.Sprintf("kafka-output-%d", id)

			for {
				payload, ok, err := recv(ctx)
				if err != nil || !ok {
					return
				}

				rec := &kgo.Record{Topic: o.Topic, Value: payload}

				if res := cl.ProduceSync(ctx, rec); res.FirstErr() != nil {
					o.L.WarnContext(ctx, "kafka produce failed", "worker", name, logging.Error(res.FirstErr()))
				}
			}
		}(i)
	}

	wg.Wait()

	return nil
}

// checkTopic issues a metadata request for the configured topic and logs a
// warning when the broker reports it missing, so a typo in output.topic
// surfaces at startup instead of silently dropping every record.
func (o *KafkaOutput) checkTopic(ctx context.Context, cl *kgo.Client) {
	req := kmsg.NewMetadataRequest()
	reqTopic := kmsg.NewMetadataRequestTopic()
	reqTopic.Topic = kmsg.StringPtr(o.Topic)
	req.Topics = []kmsg.MetadataRequestTopic{reqTopic}

	resp, err := req.RequestWith(ctx, cl)
	if err != nil {
		o.L.WarnContext(ctx, "kafka metadata request failed, continuing anyway", logging.Error(err))
		return
	}

	for _, t := range resp.Topics {
		if t.Topic != nil && *t.Topic == o.Topic && t.ErrorCode != 0 {
			o.L.WarnContext(ctx, "kafka topic reported an error, check it exists", "topic", o.Topic, "code", t.ErrorCode)
		}
	}
}

// translateLibrdkafkaOpts maps the subset of librdkafka-style config keys
// (the original flowgger's output.librdkafka table) onto the nearest
// kgo.Opt, so an existing librdkafka-flavored config carries over without a
// rewrite. Keys with no kgo equivalent are logged and ignored rather than
// failing startup.
func translateLibrdkafkaOpts(m map[string]string, l *slog.Logger) []kgo.Opt {
	var opts []kgo.Opt

	for k, v := range m {
		switch k {
		case "bootstrap.servers":
			// handled by the caller's Brokers field.

		case "compression.type":
			if codec, ok := compressionCodec(v); ok {
				opts = append(opts, kgo.ProducerBatchCompression(codec))
			} else {
				l.Warn("kafka: unknown compression.type, ignoring", "value", v)
			}

		case "linger.ms":
			if ms, err := strconv.Atoi(v); err == nil {
				opts = append(opts, kgo.ProducerLinger(time.Duration(ms)*time.Millisecond))
			}

		case "batch.size":
			if n, err := strconv.Atoi(v); err == nil {
				opts = append(opts, kgo.ProducerBatchMaxBytes(int32(n)))
			}

		case "message.max.bytes":
			if n, err := strconv.Atoi(v); err == nil {
				opts = append(opts, kgo.MaxBufferedBytes(int64(n)))
			}

		case "retries":
			if n, err := strconv.Atoi(v); err == nil {
				opts = append(opts, kgo.RecordRetries(n))
			}

		case "acks":
			switch v {
			case "all", "-1":
				opts = append(opts, kgo.RequiredAcks(kgo.AllISRAcks()))
			case "1":
				opts = append(opts, kgo.RequiredAcks(kgo.LeaderAck()))
			case "0":
				opts = append(opts, kgo.RequiredAcks(kgo.NoAck()))
			}

		case "client.id":
			opts = append(opts, kgo.ClientID(v))

		default:
			l.Warn("kafka: no kgo equivalent for librdkafka option, ignoring", "key", k)
		}
	}

	return opts
}

func compressionCodec(v string) (kgo.CompressionCodec, bool) {
	switch v {
	case "none":
		return kgo.NoCompression(), true
	case "gzip":
		return kgo.GzipCompression(), true
	case "snappy":
		return kgo.SnappyCompression(), true
	case "lz4":
		return kgo.Lz4Compression(), true
	case "zstd":
		return kgo.ZstdCompression(), true
	default:
		return kgo.CompressionCodec{}, false
	}
}
