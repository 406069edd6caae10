package main

import (
	"fmt"

	"github.com/riaintel/advflow/consumer"
	"github.com/riaintel/advflow/internal/cli/runner"
	"github.com/riaintel/advflow/processor"
)

// Factory functions wired into the CLI runner.

func CreateSourceAdapterFunc(sourceConfig runner.SourceConfig) (runner.SourceAdapter, error) {
	switch sourceConfig.Type {
	case "FilingCSVSourceAdapter":
		return NewFilingCSVSourceAdapter(sourceConfig.Config)
	case "SilverSourceAdapter":
		return NewSilverSourceAdapter(sourceConfig.Config)
	default:
		return nil, fmt.Errorf("unsupported source type: %s", sourceConfig.Type)
	}
}

func CreateProcessorFunc(processorConfig processor.ProcessorConfig) (processor.Processor, error) {
	switch processorConfig.Type {
	case "MergeFilings":
		return processor.NewMergeFilings(processorConfig.Config)
	case "PrepareKeys":
		return processor.NewPrepareKeysProcessor(processorConfig.Config)
	case "GoldBuilder":
		return processor.NewGoldBuilder(processorConfig.Config)
	case "EnforceSchemas":
		return processor.NewEnforceSchemas(processorConfig.Config)
	default:
		return nil, fmt.Errorf("unsupported processor type: %s", processorConfig.Type)
	}
}

func CreateConsumerFunc(consumerConfig consumer.ConsumerConfig) (processor.Processor, error) {
	switch consumerConfig.Type {
	case "SaveToSilver":
		return consumer.NewSaveToSilver(consumerConfig.Config)
	case "SaveToParquet":
		return consumer.NewSaveToParquet(consumerConfig.Config)
	case "SaveToDuckDB":
		return consumer.NewSaveToDuckDB(consumerConfig.Config)
	case "SaveToSQLite":
		return consumer.NewSaveToSQLite(consumerConfig.Config)
	case "SaveToExcel":
		return consumer.NewSaveToExcel(consumerConfig.Config)
	case "StdoutSink":
		return consumer.NewStdoutSink(consumerConfig.Config)
	default:
		return nil, fmt.Errorf("unsupported consumer type: %s", consumerConfig.Type)
	}
}
