package yolo

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Tutortoise/wildsnap-service/detections"
	"gopkg.in/yaml.v3"
)

// COCONames are the 80 class names of the COCO-pretrained YOLO models.
var COCONames = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink",
	"refrigerator", "book", "clock", "vase", "scissors", "teddy bear", "hair drier",
	"toothbrush",
}

// datasetFile is the subset of an ultralytics data.yaml we read. names is
// either a list or an id -> name mapping.
type datasetFile struct {
	Names yaml.Node `yaml:"names"`
}

// LoadNames reads class names from a data.yaml-style file or from a plain
// text file with one name per line.
func LoadNames(path string) (detections.ClassNames, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read class names: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAMLNames(data)
	default:
		return parseLineNames(data), nil
	}
}

func parseYAMLNames(data []byte) (detections.ClassNames, error) {
	var f datasetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse class names: %w", err)
	}
	switch f.Names.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := f.Names.Decode(&list); err != nil {
			return nil, fmt.Errorf("parse class names: %w", err)
		}
		return detections.NamesFromSlice(list), nil
	case yaml.MappingNode:
		var m map[int]string
		if err := f.Names.Decode(&m); err != nil {
			return nil, fmt.Errorf("parse class names: %w", err)
		}
		return detections.ClassNames(m), nil
	default:
		return nil, fmt.Errorf("parse class names: no names list found")
	}
}

func parseLineNames(data []byte) detections.ClassNames {
	var list []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		list = append(list, line)
	}
	return detections.NamesFromSlice(list)
}
