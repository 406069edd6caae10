package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riaintel/advflow/consumer"
	"github.com/riaintel/advflow/processor"
)

type stubSource struct {
	subscribers []processor.Processor
	fail        bool
}

func (s *stubSource) Subscribe(p processor.Processor) {
	s.subscribers = append(s.subscribers, p)
}

func (s *stubSource) Run(ctx context.Context) error {
	if s.fail {
		return fmt.Errorf("source blew up")
	}
	for _, p := range s.subscribers {
		if err := p.Process(ctx, processor.Message{Payload: "ping"}); err != nil {
			return err
		}
	}
	return nil
}

type stubStage struct {
	seen        int
	closed      bool
	subscribers []processor.Processor
}

func (s *stubStage) Subscribe(p processor.Processor) {
	s.subscribers = append(s.subscribers, p)
}

func (s *stubStage) Process(ctx context.Context, msg processor.Message) error {
	s.seen++
	for _, p := range s.subscribers {
		if err := p.Process(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *stubStage) Close() error {
	s.closed = true
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validConfig = `
pipelines:
  demo:
    source:
      type: StubSource
      config: {}
    processors:
      - type: StubProcessor
        config: {}
    consumers:
      - type: StubConsumer
        config: {}
`

func stubFactories(source *stubSource, proc, cons *stubStage) Factories {
	return Factories{
		CreateSourceAdapter: func(SourceConfig) (SourceAdapter, error) { return source, nil },
		CreateProcessor: func(processor.ProcessorConfig) (processor.Processor, error) {
			return proc, nil
		},
		CreateConsumer: func(consumer.ConsumerConfig) (processor.Processor, error) {
			return cons, nil
		},
	}
}

func TestRunnerChainsAndCloses(t *testing.T) {
	source := &stubSource{}
	proc := &stubStage{}
	cons := &stubStage{}

	r := New(Options{ConfigFile: writeConfig(t, validConfig)}, stubFactories(source, proc, cons))
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, 1, proc.seen)
	assert.Equal(t, 1, cons.seen)
	assert.True(t, cons.closed)
}

func TestRunnerReportsSourceFailure(t *testing.T) {
	source := &stubSource{fail: true}
	cons := &stubStage{}

	r := New(Options{ConfigFile: writeConfig(t, validConfig)}, stubFactories(source, &stubStage{}, cons))
	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "demo")
	// Consumers are still flushed on failure.
	assert.True(t, cons.closed)
}

func TestRunnerValidate(t *testing.T) {
	r := New(Options{ConfigFile: writeConfig(t, validConfig)}, Factories{})
	require.NoError(t, r.Validate())

	r = New(Options{ConfigFile: writeConfig(t, "pipelines: {}\n")}, Factories{})
	assert.Error(t, r.Validate())

	noConsumer := `
pipelines:
  demo:
    source:
      type: StubSource
    consumers: []
`
	r = New(Options{ConfigFile: writeConfig(t, noConsumer)}, Factories{})
	assert.Error(t, r.Validate())
}

func TestRunnerMissingConfigFile(t *testing.T) {
	r := New(Options{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")}, Factories{})
	assert.Error(t, r.Run(context.Background()))
}
