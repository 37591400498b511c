// Package config loads process configuration from the environment,
// following the teacher's getEnv/getEnvAsInt convention, extended with
// camera topology, the MQTT broker, and the vision-language endpoint.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"sentrycore/internal/model"
)

// Config is the full process configuration for the detection core.
type Config struct {
	Port int

	// PublicBaseURL is the externally reachable scheme+host[:port] this
	// process is served on (e.g. "http://192.168.1.20:8080"), used to turn
	// locally stored snapshot/recording filenames into absolute URLs for
	// published payloads.
	PublicBaseURL string

	ModelPath  string
	ConfigPath string

	RecordingsDirectory string
	SnapshotsDirectory  string
	LogDirectory        string
	DBPath              string

	RingBufferCapacity int
	PoolHeadroom       int
	FPS                int
	DetectEveryNth     int

	MQTTBrokerURL    string
	MQTTClientID     string
	MQTTStatusPrefix string

	VisionEndpoint        string
	VisionModel           string
	VisionDefaultTemplate string
	VisionMaxWords        int
	VisionOverallTimeout  int // seconds

	Cameras []model.CameraConfig
}

// Load reads a .env file if present (via godotenv, ignoring a missing
// file) then builds Config from the environment, matching the teacher's
// Load() shape.
func Load() *Config {
	_ = godotenv.Load()

	port := getEnvAsInt("PORT", 8080)

	return &Config{
		Port: port,

		PublicBaseURL: getEnv("PUBLIC_BASE_URL", fmt.Sprintf("http://localhost:%d", port)),

		ModelPath:  getEnv("MODEL_PATH", filepath.Join(".", "models", "yolo.onnx")),
		ConfigPath: getEnv("CONFIG_PATH", filepath.Join(".", "models", "yolo.cfg")),

		RecordingsDirectory: getEnv("RECORDINGS_DIR", filepath.Join(".", "recordings")),
		SnapshotsDirectory:  getEnv("SNAPSHOTS_DIR", filepath.Join(".", "snapshots")),
		LogDirectory:        getEnv("LOG_DIR", filepath.Join(".", "logs")),
		DBPath:              getEnv("DB_PATH", filepath.Join(".", "sentrycore.db")),

		RingBufferCapacity: getEnvAsInt("RING_BUFFER_CAPACITY", 150),
		PoolHeadroom:       getEnvAsInt("POOL_HEADROOM", 30),
		FPS:                getEnvAsInt("FPS", 15),
		DetectEveryNth:     getEnvAsInt("DETECT_EVERY_NTH", 3),

		MQTTBrokerURL:    getEnv("MQTT_BROKER_URL", "tcp://localhost:1883"),
		MQTTClientID:     getEnv("MQTT_CLIENT_ID", "sentrycore"),
		MQTTStatusPrefix: getEnv("MQTT_STATUS_PREFIX", "sentrycore"),

		VisionEndpoint:        getEnv("VISION_ENDPOINT", "http://localhost:11434/api/generate"),
		VisionModel:           getEnv("VISION_MODEL", "llava"),
		VisionDefaultTemplate: getEnv("VISION_DEFAULT_TEMPLATE", "Describe the {class} in the frame in {max_words} words."),
		VisionMaxWords:        getEnvAsInt("VISION_MAX_WORDS", 20),
		VisionOverallTimeout:  getEnvAsInt("VISION_TIMEOUT_SECONDS", 30),

		Cameras: loadCameras(getEnv("CAMERAS_FILE", filepath.Join(".", "cameras.json"))),
	}
}

// cameraFile is the on-disk shape of CAMERAS_FILE; kept separate from
// model.CameraConfig so the JSON field names stay snake_case without
// forcing that convention onto the domain type.
type cameraFile struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	StreamURL           string   `json:"stream_url"`
	EnabledClasses      []string `json:"enabled_classes"`
	ConfidenceThreshold float32  `json:"confidence_threshold"`
	EarlyNotifyGate     float32  `json:"early_notify_gate"`
	VisionEnabled       bool     `json:"vision_enabled"`
	VisionPrompt        string   `json:"vision_prompt"`
}

// loadCameras reads the camera topology file; a missing or malformed file
// yields an empty camera list rather than a fatal error, since the process
// can still start (health reports degraded). The file is read once, by Load.
func loadCameras(path string) []model.CameraConfig {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var raw []cameraFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	cams := make([]model.CameraConfig, 0, len(raw))
	for _, c := range raw {
		if c.ID == "" || c.StreamURL == "" {
			continue
		}
		threshold := c.ConfidenceThreshold
		if threshold == 0 {
			threshold = 0.5
		}
		gate := c.EarlyNotifyGate
		if gate == 0 {
			gate = 0.6
		}
		cams = append(cams, model.CameraConfig{
			ID:                  c.ID,
			Name:                c.Name,
			StreamURL:           c.StreamURL,
			EnabledClasses:      c.EnabledClasses,
			ConfidenceThreshold: threshold,
			EarlyNotifyGate:     gate,
			VisionEnabled:       c.VisionEnabled,
			VisionPrompt:        c.VisionPrompt,
		})
	}
	return cams
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
