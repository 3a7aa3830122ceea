package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"video-digest-service/internal/models"
)

func main() {
	serverAddr := flag.String("server", "http://localhost:8000", "HTTP API base URL")
	grpcAddr := flag.String("grpc", "localhost:50051", "gRPC address for the health check")
	videoURL := flag.String("url", "", "YouTube URL to digest")
	file := flag.String("file", "", "Local video or audio file to upload")
	transcriptFile := flag.String("transcript", "", "Text file with a ready transcript")
	language := flag.String("lang", "en", "Target language code")
	audioOut := flag.String("audio-out", "", "Write the summary audio to this path")
	timeout := flag.Duration("timeout", 30*time.Minute, "Request timeout")
	flag.Parse()

	checkHealth(*grpcAddr)

	fields := map[string]string{"language": *language}
	if *videoURL != "" {
		fields["url"] = *videoURL
	}
	if *transcriptFile != "" {
		data, err := os.ReadFile(*transcriptFile)
		if err != nil {
			log.Fatalf("Failed to read transcript: %v", err)
		}
		fields["transcript"] = string(data)
	}
	if *file != "" && strings.EqualFold(filepath.Ext(*file), ".wav") {
		describeWAV(*file)
	}

	body, contentType, err := buildForm(fields, *file)
	if err != nil {
		log.Fatalf("Failed to build request: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(*serverAddr, "/")+"/summarize", body)
	if err != nil {
		log.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Failed to read response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e models.ErrorResponse
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			log.Fatalf("Digest failed (%d %s): %s", resp.StatusCode, e.Code, e.Error)
		}
		log.Fatalf("Digest failed (%d): %s", resp.StatusCode, data)
	}

	var result models.DigestResult
	if err := json.Unmarshal(data, &result); err != nil {
		log.Fatalf("Failed to decode result: %v", err)
	}

	log.Printf("Digest %s finished in %s", result.RequestID, time.Since(start).Round(time.Millisecond))
	fmt.Printf("Title:    %s\n", result.Metrics.VideoTitle)
	fmt.Printf("Duration: %s\n", result.Metrics.VideoDuration)
	fmt.Printf("Language: %s -> %s (%s)\n", result.SourceLanguage, result.TargetLanguage, result.ContentSource)
	fmt.Printf("\nSummary:\n%s\n", result.Summary)
	if result.TargetLanguage != result.SourceLanguage {
		fmt.Printf("\nEnglish summary:\n%s\n", result.EnglishSummary)
	}

	if *audioOut != "" && result.SummaryAudio != nil {
		audio, err := base64.StdEncoding.DecodeString(*result.SummaryAudio)
		if err != nil {
			log.Fatalf("Failed to decode summary audio: %v", err)
		}
		if err := os.WriteFile(*audioOut, audio, 0o644); err != nil {
			log.Fatalf("Failed to write summary audio: %v", err)
		}
		log.Printf("Summary audio (%s, silent=%v) written to %s", result.AudioFormat, result.Metrics.SilentAudio, *audioOut)
	}
}

// checkHealth logs the server's gRPC health status.
func checkHealth(addr string) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Printf("Health check skipped: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		log.Printf("Health check failed: %v", err)
		return
	}
	log.Printf("Server health: %s", resp.Status)
}

// describeWAV logs the format of a WAV upload.
func describeWAV(path string) {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open audio file: %v", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		log.Fatal("Not a valid WAV file")
	}
	d, err := dec.Duration()
	if err != nil {
		d = 0
	}
	log.Printf("WAV file: format=%d channels=%d sampleRate=%d bitsPerSample=%d duration=%s",
		dec.WavAudioFormat, dec.NumChans, dec.SampleRate, dec.BitDepth, d)
}

func buildForm(fields map[string]string, file string) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, "", err
		}
		defer f.Close()
		fw, err := mw.CreateFormFile("file", filepath.Base(file))
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(fw, f); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf, mw.FormDataContentType(), nil
}
