// Command viewer is a headless viewing client. It resolves an access code
// against a running server, opens a local viewing session with the same
// countdown, view counter and protection rules the web page enforces, and
// writes a watermarked frame to disk.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/hackerloum/secureview/internal/app/service"
	"github.com/hackerloum/secureview/internal/infra/logger"
	"github.com/hackerloum/secureview/internal/session"
	"github.com/hackerloum/secureview/internal/session/protection"
	"github.com/hackerloum/secureview/internal/session/watermark"
	"go.uber.org/zap"
)

type contentPayload struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	AccessCode  string `json:"accessCode"`
	OwnerID     string `json:"ownerId"`
}

func main() {
	server := flag.String("server", "http://localhost:8080", "base URL of the SecureView server")
	code := flag.String("code", "", "access code to resolve")
	fingerprint := flag.String("fingerprint", "headless", "viewer fingerprint used to seed the watermark")
	fontPath := flag.String("font", "", "TTF font for burning the watermark (skip burn when empty)")
	out := flag.String("out", "frame.png", "output path for the watermarked frame")
	width := flag.Int("width", 1280, "viewport width")
	height := flag.Int("height", 800, "viewport height")
	flag.Parse()

	log := logger.MustInit(logger.Config{Development: true})
	defer func() { _ = logger.Sync() }()

	if *code == "" {
		log.Fatal("missing -code")
	}

	sess := session.New(session.Config{}, session.Callbacks{
		OnTick: func(remaining int) {
			if remaining%60 == 0 {
				log.Info("Session countdown", zap.Int("remaining_seconds", remaining))
			}
		},
		OnStateChange: func(st session.State) {
			log.Info("Session state changed", zap.String("state", st.String()))
		},
		OnLastViewWarning: func() {
			log.Warn("Last view remaining")
		},
		OnToast: func(n protection.Notice) {
			log.Warn("Protection notice", zap.String("message", n.Message))
		},
		OnTerminate: func(st session.State) {
			log.Info("Session terminated", zap.String("state", st.String()))
		},
	})

	content, err := resolve(*server, *code)
	if err != nil {
		sess.Deny()
		log.Fatal("Access denied", zap.Error(err))
	}

	env := protection.Environment{Platform: hostPlatform()}
	vp := watermark.Viewport{Width: *width, Height: *height}
	if err := sess.Begin(content.ID, service.NormalizeCode(*code), *fingerprint, env, vp); err != nil {
		log.Fatal("Failed to open session", zap.Error(err))
	}
	if err := sess.Start(); err != nil {
		log.Fatal("Failed to start session", zap.Error(err))
	}
	defer sess.Stop()

	log.Info("Session opened",
		zap.String("session_id", sess.ID),
		zap.String("title", content.Title),
		zap.Int("remaining_views", sess.RemainingViews()))

	if err := sess.ConsumeView(); err != nil {
		log.Fatal("No views remaining", zap.Error(err))
	}

	frame, err := fetchImage(content.ImageURL)
	if err != nil {
		log.Fatal("Failed to download media", zap.Error(err))
	}

	layout, ok := sess.Layout()
	if !ok {
		log.Fatal("Session has no watermark layout")
	}

	if *fontPath != "" {
		renderer, err := watermark.NewRenderer(*fontPath)
		if err != nil {
			log.Fatal("Failed to load watermark font", zap.Error(err))
		}
		frame, err = renderer.Render(frame, layout)
		if err != nil {
			log.Fatal("Failed to render watermark", zap.Error(err))
		}
	} else {
		log.Warn("No font provided, writing frame without burned watermark",
			zap.Int("marks", len(layout.Marks)))
	}

	if err := writePNG(*out, frame); err != nil {
		log.Fatal("Failed to write frame", zap.Error(err))
	}
	log.Info("Frame written", zap.String("path", *out))
}

func resolve(server, code string) (*contentPayload, error) {
	url := fmt.Sprintf("%s/api/content/%s", server, service.NormalizeCode(code))
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("resolve %s: status %d", code, resp.StatusCode)
	}

	var content contentPayload
	if err := json.NewDecoder(resp.Body).Decode(&content); err != nil {
		return nil, err
	}
	return &content, nil
}

func fetchImage(url string) (image.Image, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch media: status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	return img, err
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func hostPlatform() protection.Platform {
	switch runtime.GOOS {
	case "darwin":
		return protection.PlatformMac
	case "windows":
		return protection.PlatformWindows
	default:
		return protection.PlatformOther
	}
}
