package main

import (
	"context"
	"log"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/riaintel/advflow/processor"
)

const (
	defaultBaseAPrefix = "IA_ADV_Base_A"
	defaultBaseBPrefix = "IA_ADV_Base_B"
)

// FilingCSVSourceAdapter scans a raw dump directory for Base A / Base B
// filing CSVs, pairs them by reporting period and emits one PeriodFilings
// message per complete period, oldest first.
type FilingCSVSourceAdapter struct {
	rawDir      string
	baseAPrefix string
	baseBPrefix string
	processors  []processor.Processor
	stats       struct {
		periodsEmitted int64
		periodsSkipped int64
	}
}

func NewFilingCSVSourceAdapter(config map[string]interface{}) (SourceAdapter, error) {
	rawDir, ok := config["raw_dir"].(string)
	if !ok || rawDir == "" {
		return nil, errors.New("raw_dir must be specified")
	}

	adapter := &FilingCSVSourceAdapter{
		rawDir:      rawDir,
		baseAPrefix: defaultBaseAPrefix,
		baseBPrefix: defaultBaseBPrefix,
	}
	if p, ok := config["base_a_prefix"].(string); ok && p != "" {
		adapter.baseAPrefix = p
	}
	if p, ok := config["base_b_prefix"].(string); ok && p != "" {
		adapter.baseBPrefix = p
	}
	return adapter, nil
}

func (adapter *FilingCSVSourceAdapter) Subscribe(receiver processor.Processor) {
	adapter.processors = append(adapter.processors, receiver)
}

func (adapter *FilingCSVSourceAdapter) Run(ctx context.Context) error {
	log.Printf("FilingCSVSource: scanning %s", adapter.rawDir)

	baseA, err := adapter.filesByPeriod(adapter.baseAPrefix)
	if err != nil {
		return err
	}
	baseB, err := adapter.filesByPeriod(adapter.baseBPrefix)
	if err != nil {
		return err
	}

	periods := make([]string, 0, len(baseA))
	for period := range baseA {
		periods = append(periods, period)
	}
	for period := range baseB {
		if _, ok := baseA[period]; !ok {
			periods = append(periods, period)
		}
	}
	sort.Strings(periods)

	for _, period := range periods {
		aFiles, okA := baseA[period]
		bFiles, okB := baseB[period]
		if !okA || !okB {
			log.Printf("FilingCSVSource: skipping period %s, missing %s side",
				formatPeriod(period), missingSide(okA))
			adapter.stats.periodsSkipped++
			continue
		}
		if err := adapter.emitPeriod(ctx, period, preferOriginal(aFiles), preferOriginal(bFiles)); err != nil {
			return errors.Wrapf(err, "failed to process period %s", formatPeriod(period))
		}
		adapter.stats.periodsEmitted++
	}

	log.Printf("FilingCSVSource: done, %d period(s) emitted, %d skipped",
		adapter.stats.periodsEmitted, adapter.stats.periodsSkipped)
	return nil
}

// filesByPeriod groups matching dump files by their reporting period stamp.
func (adapter *FilingCSVSourceAdapter) filesByPeriod(prefix string) (map[string][]string, error) {
	matches, err := filepath.Glob(filepath.Join(adapter.rawDir, prefix+"*.csv"))
	if err != nil {
		return nil, errors.Wrap(err, "error scanning raw directory")
	}
	if len(matches) == 0 {
		log.Printf("FilingCSVSource: no %s*.csv files under %s", prefix, adapter.rawDir)
	}

	byPeriod := map[string][]string{}
	for _, path := range matches {
		name := filepath.Base(path)
		period, ok := periodFromFilename(name)
		if !ok {
			log.Printf("FilingCSVSource: ignoring %s, no period stamp in name", name)
			continue
		}
		byPeriod[period] = append(byPeriod[period], path)
	}
	return byPeriod, nil
}

func (adapter *FilingCSVSourceAdapter) emitPeriod(ctx context.Context, period, pathA, pathB string) error {
	tableA, err := readFilingCSV(pathA)
	if err != nil {
		return err
	}
	tableB, err := readFilingCSV(pathB)
	if err != nil {
		return err
	}
	log.Printf("FilingCSVSource: period %s, %s (%d rows) + %s (%d rows)",
		formatPeriod(period), filepath.Base(pathA), tableA.Len(), filepath.Base(pathB), tableB.Len())

	msg := processor.Message{
		Payload: processor.PeriodFilings{
			Period: period,
			BaseA:  tableA,
			BaseB:  tableB,
		},
		Metadata: map[string]interface{}{"period": period},
	}
	for _, p := range adapter.processors {
		if err := p.Process(ctx, msg); err != nil {
			return errors.Wrapf(err, "error in processor %T", p)
		}
	}
	return nil
}

func missingSide(haveA bool) string {
	if !haveA {
		return "Base A"
	}
	return "Base B"
}
