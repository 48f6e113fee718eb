package yolo

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/sys/cpu"
)

var (
	runtimeOnce sync.Once
	runtimeErr  error
)

// libraryName returns the onnxruntime shared library file name for the
// current platform.
func libraryName() string {
	switch runtime.GOOS {
	case "darwin":
		return "libonnxruntime.dylib"
	case "windows":
		return "onnxruntime.dll"
	default:
		return "libonnxruntime.so"
	}
}

// ResolveLibrary turns the configured location into a library file path.
// A directory is joined with the platform library name.
func ResolveLibrary(location string) (string, error) {
	if location == "" {
		return "", fmt.Errorf("onnxruntime library path not configured")
	}
	info, err := os.Stat(location)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("onnxruntime library not found: %s", location)
	}
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		location = filepath.Join(location, libraryName())
		if _, err := os.Stat(location); err != nil {
			return "", fmt.Errorf("onnxruntime library not found: %s", location)
		}
	}
	return location, nil
}

// InitRuntime loads the onnxruntime shared library and initializes its
// environment. Only the first call does any work.
func InitRuntime(location string, log logrus.FieldLogger) error {
	runtimeOnce.Do(func() {
		libPath, err := ResolveLibrary(location)
		if err != nil {
			runtimeErr = err
			return
		}
		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			runtimeErr = fmt.Errorf("failed to initialize ONNX environment: %w", err)
			return
		}
		log.WithFields(logrus.Fields{
			"library": libPath,
			"cpu":     CPUFeatures(),
		}).Info("onnxruntime initialized")
	})
	return runtimeErr
}

// DestroyRuntime tears down the onnxruntime environment.
func DestroyRuntime() {
	if ort.IsInitialized() {
		ort.DestroyEnvironment()
	}
}

// CPUFeatures reports the vector extensions available to the runtime's
// kernels on this host.
func CPUFeatures() map[string]bool {
	switch runtime.GOARCH {
	case "amd64", "386":
		return map[string]bool{
			"sse41":   cpu.X86.HasSSE41,
			"avx":     cpu.X86.HasAVX,
			"avx2":    cpu.X86.HasAVX2,
			"fma":     cpu.X86.HasFMA,
			"avx512f": cpu.X86.HasAVX512F,
		}
	case "arm64":
		return map[string]bool{
			"asimd":   cpu.ARM64.HasASIMD,
			"asimddp": cpu.ARM64.HasASIMDDP,
			"fphp":    cpu.ARM64.HasFPHP,
		}
	default:
		return map[string]bool{}
	}
}
