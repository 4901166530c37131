package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	OCR     OCRConfig
	Vision  VisionConfig
	LLM     LLMConfig
	Watcher WatcherConfig
	Server  ServerConfig
}

// OCRConfig holds text-acquisition configuration
type OCRConfig struct {
	Pdftotext string
	Pdftoppm  string
	Tesseract string

	TesseractLang      string
	TesseractPSM       int
	TesseractOEM       int
	TesseractWhitelist string

	DPI               int
	BornDigitalCheck  bool
	PDFMinChars       int
	PreprocessEnable  bool
	PreprocessDeskew  bool
	PreprocessDenoise bool
}

// VisionConfig holds vision-extraction configuration
type VisionConfig struct {
	PageBudget       int
	OpenRouterAPIKey string
	OpenRouterModel  string
	OllamaModel      string
	Timeout          time.Duration
}

// LLMConfig holds text/segmentation backend configuration
type LLMConfig struct {
	OllamaBase     string
	Model          string
	Temperature    float32
	Timeout        time.Duration
	SegmentTimeout time.Duration
}

// WatcherConfig holds ingestion-loop configuration
type WatcherConfig struct {
	InboxDir     string
	OutboxDir    string
	ConfigDir    string
	Interval     time.Duration
	SegmentMode  bool
	NotifyWake   bool
	MaxProcessed int // 0 = unbounded
}

// ServerConfig holds HTTP boundary configuration
type ServerConfig struct {
	Port           string
	MaxUploadBytes int64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		OCR: OCRConfig{
			Pdftotext:          getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:           getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract:          getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang:      getEnv("TESSERACT_LANG", "eng"),
			TesseractPSM:       getEnvAsInt("TESSERACT_PSM", 0),
			TesseractOEM:       getEnvAsInt("TESSERACT_OEM", 0),
			TesseractWhitelist: getEnv("TESSERACT_CHAR_WHITELIST", ""),
			DPI:                getEnvAsInt("OCR_DPI", 300),
			BornDigitalCheck:   getEnvAsBool("PDF_BORNDIGITAL_CHECK", true),
			PDFMinChars:        getEnvAsInt("PDF_MIN_CHARS", 50),
			PreprocessEnable:   getEnvAsBool("PREPROCESS_ENABLE", false),
			PreprocessDeskew:   getEnvAsBool("PREPROCESS_DESKEW", false),
			PreprocessDenoise:  getEnvAsBool("PREPROCESS_DENOISE", false),
		},
		Vision: VisionConfig{
			PageBudget:       getEnvAsInt("VISION_PAGE_BUDGET", 2),
			OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
			OpenRouterModel:  getEnv("OPENROUTER_VISION_MODEL", "qwen2.5-vl-7b-instruct"),
			OllamaModel:      getEnv("OLLAMA_VISION_MODEL", "qwen2.5-vl"),
			Timeout:          getEnvAsDuration("VISION_TIMEOUT", 180*time.Second),
		},
		LLM: LLMConfig{
			OllamaBase:     getEnv("OLLAMA_BASE", "http://localhost:11434"),
			Model:          getEnv("OLLAMA_MODEL", "llama3.1"),
			Temperature:    getEnvAsFloat32("OLLAMA_TEMPERATURE", 0.1),
			Timeout:        getEnvAsDuration("TEXT_TIMEOUT", 120*time.Second),
			SegmentTimeout: getEnvAsDuration("SEGMENT_TIMEOUT", 180*time.Second),
		},
		Watcher: WatcherConfig{
			InboxDir:     getEnv("INBOX_DIR", "/data/inbox"),
			OutboxDir:    getEnv("OUTBOX_DIR", "/data/outbox"),
			ConfigDir:    getEnv("CONFIG_DIR", "/data/config"),
			Interval:     getEnvAsDuration("WATCH_INTERVAL", 2*time.Second),
			SegmentMode:  getEnvAsBool("SEGMENT_MODE", true),
			NotifyWake:   getEnvAsBool("WATCH_NOTIFY_WAKE", true),
			MaxProcessed: getEnvAsInt("WATCH_MAX_PROCESSED", 0),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			MaxUploadBytes: getEnvAsInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
		// accept the bare "1"/"0" convention as well
		if value == "1" {
			return true
		}
		if value == "0" {
			return false
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
