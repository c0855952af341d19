package dataset

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"liepavoice/internal/language"
	"liepavoice/internal/media/audio"
)

type cardFeature struct {
	Name  string `yaml:"name"`
	Dtype any    `yaml:"dtype"`
}

type cardSplit struct {
	Name        string `yaml:"name"`
	NumExamples int    `yaml:"num_examples"`
}

type cardDataFile struct {
	Split string `yaml:"split"`
	Path  string `yaml:"path"`
}

type cardConfig struct {
	ConfigName string         `yaml:"config_name"`
	DataFiles  []cardDataFile `yaml:"data_files"`
}

type cardInfo struct {
	Features []cardFeature `yaml:"features"`
	Splits   []cardSplit   `yaml:"splits"`
}

type cardHeader struct {
	PrettyName     string       `yaml:"pretty_name,omitempty"`
	Language       []string     `yaml:"language,omitempty"`
	TaskCategories []string     `yaml:"task_categories"`
	Configs        []cardConfig `yaml:"configs"`
	DatasetInfo    cardInfo     `yaml:"dataset_info"`
}

func renderCard(result SaveResult, format *audio.Format, languages []string, opts SaveOptions) ([]byte, error) {
	audioType := map[string]any{"audio": map[string]any{}}
	if format != nil {
		audioType = map[string]any{"audio": map[string]any{"sampling_rate": format.SampleRate}}
	}
	header := cardHeader{
		PrettyName:     opts.PrettyName,
		Language:       languages,
		TaskCategories: []string{"automatic-speech-recognition"},
		DatasetInfo: cardInfo{
			Features: []cardFeature{
				{Name: "audio", Dtype: audioType},
				{Name: "sentence", Dtype: "string"},
				{Name: "language", Dtype: "string"},
			},
		},
	}
	config := cardConfig{ConfigName: "default"}
	for _, split := range result.Splits {
		header.DatasetInfo.Splits = append(header.DatasetInfo.Splits, cardSplit{Name: split.Name, NumExamples: split.Records})
		config.DataFiles = append(config.DataFiles, cardDataFile{Split: split.Name, Path: split.Name + "/**"})
	}
	header.Configs = []cardConfig{config}

	front, err := yaml.Marshal(header)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(front)
	buf.WriteString("---\n\n")
	title := opts.PrettyName
	if title == "" {
		title = "Speech dataset"
	}
	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "Utterance clips with transcripts, shuffled with seed %d.\n\n", result.Seed)
	if len(languages) > 0 {
		fmt.Fprintf(&buf, "Language: %s.\n\n", language.DisplayList(languages))
	}
	buf.WriteString("| split | records | hours |\n|---|---|---|\n")
	for _, split := range result.Splits {
		fmt.Fprintf(&buf, "| %s | %d | %.2f |\n", split.Name, split.Records, split.DurationSeconds/3600)
	}
	if len(opts.Groups) > 0 {
		fmt.Fprintf(&buf, "\nAssembled from %d source groups.\n", len(opts.Groups))
	}
	return buf.Bytes(), nil
}
