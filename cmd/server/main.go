package main

import (
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/Brownie44l1/babble-runtime/internal/config"
	"github.com/Brownie44l1/babble-runtime/internal/executor"
	"github.com/Brownie44l1/babble-runtime/internal/handlers"
	"github.com/Brownie44l1/babble-runtime/internal/runtime"
	"github.com/Brownie44l1/babble-runtime/internal/zone"
)

func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func main() {
	execPath, err := os.Getwd()
	if err != nil {
		log.Fatalf("Failed to get working directory: %v", err)
	}
	if filepath.Base(execPath) == "server" {
		execPath = filepath.Join(execPath, "../..")
	}

	configPath := os.Getenv("BABBLE_CONFIG")
	if configPath == "" {
		configPath = filepath.Join(execPath, "config.yaml")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := executor.Init(); err != nil {
		log.Fatalf("Failed to initialize ONNX environment: %v", err)
	}
	defer executor.Shutdown()

	exec := executor.New()
	rt := runtime.New(exec)
	defer rt.Free()

	hub := handlers.NewHub()
	rt.OnData(hub.OnData)

	for name, zc := range cfg.Zones {
		zs, err := parseZoneKey(name)
		if err != nil {
			log.Printf("config: %v, skipping zone entry %q", err, name)
			continue
		}
		model, err := os.ReadFile(zc.ModelPath)
		if err != nil {
			log.Printf("config: failed to read model for %q: %v", name, err)
			continue
		}
		if !rt.LoadModel(model, zs) {
			log.Printf("config: failed to load model for %q from %s", name, zc.ModelPath)
			continue
		}
		log.Printf("Loaded model for zone(s) %q from %s", name, zc.ModelPath)
	}

	h := handlers.NewHandler(rt)

	http.HandleFunc("/health", enableCORS(h.Health))
	http.HandleFunc("/model", enableCORS(h.LoadModel))
	http.HandleFunc("/frame", enableCORS(h.PushFrame))
	http.HandleFunc("/params", enableCORS(h.GetParams))
	http.HandleFunc("/gazes", enableCORS(h.GetGazes))
	http.HandleFunc("/stream", hub.Serve)

	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	log.Println("Endpoints:")
	log.Println("  GET  /health  - Health check")
	log.Println("  POST /model   - Load a model for one or more zones")
	log.Println("  POST /frame   - Push a frame for inference")
	log.Println("  GET  /params  - Read committed expression params")
	log.Println("  GET  /gazes   - Read committed gaze vectors")
	log.Println("  GET  /stream  - Websocket feed of on_data notifications")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func parseZoneKey(name string) (zone.Zones, error) {
	switch name {
	case "left_eye":
		return zone.Zones(0).With(zone.LeftEye), nil
	case "right_eye":
		return zone.Zones(0).With(zone.RightEye), nil
	case "mouth":
		return zone.Zones(0).With(zone.Mouth), nil
	case "eyes":
		return zone.Eyes, nil
	default:
		return 0, &unknownZoneError{name}
	}
}

type unknownZoneError struct{ name string }

func (e *unknownZoneError) Error() string { return "unknown zone key " + e.name }
