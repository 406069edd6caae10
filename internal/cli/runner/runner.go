package runner

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/fatih/color"
	"gopkg.in/yaml.v2"

	"github.com/riaintel/advflow/consumer"
	"github.com/riaintel/advflow/processor"
)

type Options struct {
	ConfigFile string
	Verbose    bool
}

// Factories supplies the component constructors, wired in by the main
// package so the runner stays free of concrete component imports.
type Factories struct {
	CreateSourceAdapter func(SourceConfig) (SourceAdapter, error)
	CreateProcessor     func(processor.ProcessorConfig) (processor.Processor, error)
	CreateConsumer      func(consumer.ConsumerConfig) (processor.Processor, error)
}

type Runner struct {
	opts      Options
	factories Factories
}

type Config struct {
	Pipelines map[string]PipelineConfig `yaml:"pipelines"`
}

type PipelineConfig struct {
	Name       string                      `yaml:"name"`
	Source     SourceConfig                `yaml:"source"`
	Processors []processor.ProcessorConfig `yaml:"processors"`
	Consumers  []consumer.ConsumerConfig   `yaml:"consumers"`
}

type SourceConfig struct {
	Type   string                 `yaml:"type"`
	Config map[string]interface{} `yaml:"config"`
}

type SourceAdapter interface {
	Run(context.Context) error
	Subscribe(processor.Processor)
}

func New(opts Options, factories Factories) *Runner {
	return &Runner{
		opts:      opts,
		factories: factories,
	}
}

func (r *Runner) loadConfig() (*Config, error) {
	configBytes, err := os.ReadFile(r.opts.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", r.opts.ConfigFile, err)
	}

	var config Config
	if err := yaml.Unmarshal(configBytes, &config); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if len(config.Pipelines) == 0 {
		return nil, fmt.Errorf("config defines no pipelines")
	}
	return &config, nil
}

// Validate parses the config and checks every pipeline is structurally
// complete without instantiating any component.
func (r *Runner) Validate() error {
	config, err := r.loadConfig()
	if err != nil {
		return err
	}
	for name, pipeline := range config.Pipelines {
		if pipeline.Source.Type == "" {
			return fmt.Errorf("pipeline %s: source type is required", name)
		}
		for i, proc := range pipeline.Processors {
			if proc.Type == "" {
				return fmt.Errorf("pipeline %s: processor %d has no type", name, i)
			}
		}
		if len(pipeline.Consumers) == 0 {
			return fmt.Errorf("pipeline %s: at least one consumer is required", name)
		}
		for i, cons := range pipeline.Consumers {
			if cons.Type == "" {
				return fmt.Errorf("pipeline %s: consumer %d has no type", name, i)
			}
		}
	}
	return nil
}

// Run executes every configured pipeline in name order. A failing pipeline
// does not stop its siblings; the first failure is reported at the end.
func (r *Runner) Run(ctx context.Context) error {
	config, err := r.loadConfig()
	if err != nil {
		return err
	}

	names := make([]string, 0, len(config.Pipelines))
	for name := range config.Pipelines {
		names = append(names, name)
	}
	sort.Strings(names)

	var firstErr error
	for _, name := range names {
		log.Printf("Starting pipeline: %s", name)
		if err := r.setupPipeline(ctx, config.Pipelines[name]); err != nil {
			fmt.Println(color.RedString("❌ Pipeline %s failed: %v", name, err))
			if firstErr == nil {
				firstErr = fmt.Errorf("pipeline %s: %w", name, err)
			}
			continue
		}
		fmt.Println(color.GreenString("✅ Pipeline %s completed", name))
	}

	log.Printf("All pipelines finished.")
	return firstErr
}

func (r *Runner) setupPipeline(ctx context.Context, pipelineConfig PipelineConfig) error {
	source, err := r.factories.CreateSourceAdapter(pipelineConfig.Source)
	if err != nil {
		return fmt.Errorf("error creating source: %w", err)
	}

	processors := make([]processor.Processor, len(pipelineConfig.Processors))
	for i, procConfig := range pipelineConfig.Processors {
		proc, err := r.factories.CreateProcessor(procConfig)
		if err != nil {
			return fmt.Errorf("error creating processor %s: %w", procConfig.Type, err)
		}
		processors[i] = proc
	}

	consumers := make([]processor.Processor, len(pipelineConfig.Consumers))
	for i, consConfig := range pipelineConfig.Consumers {
		cons, err := r.factories.CreateConsumer(consConfig)
		if err != nil {
			return fmt.Errorf("error creating consumer %s: %w", consConfig.Type, err)
		}
		consumers[i] = cons
	}

	buildProcessorChain(processors, consumers)

	if len(processors) > 0 {
		source.Subscribe(processors[0])
	} else if len(consumers) > 0 {
		source.Subscribe(consumers[0])
	}

	err = source.Run(ctx)

	// Flush buffering consumers even when the source failed.
	log.Printf("Pipeline source completed, flushing consumers...")
	for _, cons := range consumers {
		if closer, ok := cons.(interface{ Close() error }); ok {
			if closeErr := closer.Close(); closeErr != nil {
				log.Printf("Error closing consumer %T: %v", cons, closeErr)
				if err == nil {
					err = closeErr
				}
			}
		}
	}

	return err
}

// buildProcessorChain chains processors sequentially and subscribes every
// consumer to the last processor.
func buildProcessorChain(processors []processor.Processor, consumers []processor.Processor) {
	var lastProcessor processor.Processor

	for _, p := range processors {
		if lastProcessor != nil {
			lastProcessor.Subscribe(p)
			log.Printf("Chained processor %T -> %T", lastProcessor, p)
		}
		lastProcessor = p
	}

	if lastProcessor != nil {
		for _, c := range consumers {
			lastProcessor.Subscribe(c)
			log.Printf("Chained processor %T -> consumer %T", lastProcessor, c)
		}
	} else if len(consumers) > 1 {
		// No processors: fan the remaining consumers off the first.
		for i := 1; i < len(consumers); i++ {
			consumers[0].Subscribe(consumers[i])
			log.Printf("Chained consumer %T -> consumer %T", consumers[0], consumers[i])
		}
	}
}
