package consumer

import (
	"context"

	"github.com/riaintel/advflow/processor"
)

// Consumer is a terminal pipeline stage. It shares the Processor contract
// so sinks can be chained like any other stage.
type Consumer interface {
	Process(context.Context, processor.Message) error
	Subscribe(processor.Processor)
}

type ConsumerConfig struct {
	Type   string                 `yaml:"type"`
	Config map[string]interface{} `yaml:"config"`
}
