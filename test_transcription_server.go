package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

type RecognizeResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type streamAlternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

type streamEvent struct {
	IsFinal bool `json:"is_final"`
	Channel struct {
		Alternatives []streamAlternative `json:"alternatives"`
	} `json:"channel"`
}

func recognizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse multipart form
	err := r.ParseMultipartForm(10 << 20) // 10 MB
	if err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	requestID := r.FormValue("request_id")
	language := r.FormValue("language")
	vadFilter := r.FormValue("vad_filter")
	minSilence := r.FormValue("min_silence_duration_ms")

	// Get audio file
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	log.Printf("🎤 RECOGNITION REQUEST RECEIVED:")
	log.Printf("    Request ID: %s", requestID)
	log.Printf("    Language: %s", language)
	log.Printf("    VAD Filter: %s (min silence %s ms)", vadFilter, minSilence)
	log.Printf("    Filename: %s", header.Filename)
	log.Printf("    Audio Size: %d bytes", len(audioData))

	// Simulate processing time
	time.Sleep(200 * time.Millisecond)

	response := RecognizeResponse{
		Text:     "this is a test transcription period",
		Language: "en",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)

	log.Printf("✅ RECOGNITION RESPONSE SENT: '%s'", response.Text)
	log.Println("---")
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// listenHandler accepts a streaming session: it discards inbound audio and
// emits one finalized transcript event per second.
func listenHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("🔌 STREAMING SESSION OPENED from %s", r.RemoteAddr)

	// Drain inbound audio frames
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	phrases := []string{"hello world", "this is streaming text", "ship it enter"}
	for i := 0; ; i++ {
		<-ticker.C

		var event streamEvent
		event.IsFinal = true
		event.Channel.Alternatives = []streamAlternative{
			{Transcript: phrases[i%len(phrases)], Confidence: 0.95},
		}
		if err := conn.WriteJSON(event); err != nil {
			log.Printf("🔌 STREAMING SESSION CLOSED: %v", err)
			return
		}
		log.Printf("📤 STREAMED FINAL: '%s'", event.Channel.Alternatives[0].Transcript)
	}
}

func main() {
	http.HandleFunc("/transcribe", recognizeHandler)
	http.HandleFunc("/listen", listenHandler)

	port := ":9000"
	log.Printf("🚀 Test Recognition Server starting on port %s", port)
	log.Printf("📡 HTTP endpoint: http://localhost%s/transcribe", port)
	log.Printf("📡 Streaming endpoint: ws://localhost%s/listen", port)
	log.Println("💡 Update your config to use these endpoints")

	if err := http.ListenAndServe(port, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
