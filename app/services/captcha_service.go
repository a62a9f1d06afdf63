package services

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/wenlng/go-captcha/v2/rotate"
	xdraw "golang.org/x/image/draw"
)

// CaptchaService exposes methods to generate and verify captchas for the admin sign-in page.
// It uses the rotate mode from go-captcha: the client rotates the thumb until it
// lines up with the master image and submits the angle it applied.
type CaptchaService interface {
	// GenerateRotate creates a rotate captcha challenge and returns the assets and challenge ID
	GenerateRotate(ctx context.Context) (*RotateChallenge, error)
	// VerifyRotate verifies the provided user angle for a given challenge ID.
	// A challenge is consumed by the first verification attempt.
	VerifyRotate(ctx context.Context, challengeID string, userAngle float64) bool
}

type RotateChallenge struct {
	ID                string
	MasterImageBase64 string
	ThumbImageBase64  string
	ExpiresAt         time.Time
}

// ChallengeStore keeps the target angle of outstanding challenges
type ChallengeStore interface {
	Set(ctx context.Context, id string, angle int, ttl time.Duration) error
	// Take returns and removes the stored angle
	Take(ctx context.Context, id string) (int, bool, error)
}

type captchaServiceImpl struct {
	rotator rotate.Captcha
	store   ChallengeStore
	ttl     time.Duration
	padding int // tolerance for angle validation
}

// NewCaptchaServiceRotate constructs a CaptchaService using rotate mode.
// padding is the accepted angle difference in degrees, imgSizePx the square size of the images.
func NewCaptchaServiceRotate(store ChallengeStore, ttl time.Duration, padding int, imgSizePx int) (CaptchaService, error) {
	if store == nil {
		return nil, errors.New("captcha challenge store is required")
	}
	if imgSizePx <= 0 {
		imgSizePx = 220
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}

	builder := rotate.NewBuilder(
		rotate.WithImageSquareSize(imgSizePx),
	)
	builder.SetResources(
		rotate.WithImages(generateRotateBackgrounds(3, imgSizePx)),
	)

	return &captchaServiceImpl{
		rotator: builder.Make(),
		store:   store,
		ttl:     ttl,
		padding: padding,
	}, nil
}

func (s *captchaServiceImpl) GenerateRotate(ctx context.Context) (*RotateChallenge, error) {
	captData, err := s.rotator.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate captcha: %w", err)
	}

	block := captData.GetData()
	if block == nil {
		return nil, errors.New("captcha generator returned no block data")
	}

	masterB64, err := captData.GetMasterImage().ToBase64()
	if err != nil {
		return nil, fmt.Errorf("failed to encode captcha image: %w", err)
	}
	thumbB64, err := captData.GetThumbImage().ToBase64()
	if err != nil {
		return nil, fmt.Errorf("failed to encode captcha thumb: %w", err)
	}

	challengeID := uuid.New().String()
	if err := s.store.Set(ctx, challengeID, block.Angle, s.ttl); err != nil {
		return nil, fmt.Errorf("failed to store captcha challenge: %w", err)
	}

	return &RotateChallenge{
		ID:                challengeID,
		MasterImageBase64: masterB64,
		ThumbImageBase64:  thumbB64,
		ExpiresAt:         time.Now().Add(s.ttl),
	}, nil
}

func (s *captchaServiceImpl) VerifyRotate(ctx context.Context, challengeID string, userAngle float64) bool {
	target, ok, err := s.store.Take(ctx, challengeID)
	if err != nil || !ok {
		return false
	}

	// Round user-provided angle to integer degrees expected by validator
	return rotate.Validate(int(math.Round(userAngle)), target, s.padding)
}

// --- Redis store ---

type redisChallengeStore struct {
	rc     *redis.Client
	prefix string
}

// NewRedisChallengeStore stores challenges in redis so any instance can verify them
func NewRedisChallengeStore(rc *redis.Client, prefix string) ChallengeStore {
	return &redisChallengeStore{rc: rc, prefix: prefix + "captcha:"}
}

func (s *redisChallengeStore) Set(ctx context.Context, id string, angle int, ttl time.Duration) error {
	return s.rc.Set(ctx, s.prefix+id, angle, ttl).Err()
}

func (s *redisChallengeStore) Take(ctx context.Context, id string) (int, bool, error) {
	raw, err := s.rc.GetDel(ctx, s.prefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	angle, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt captcha entry: %w", err)
	}
	return angle, true, nil
}

// --- In-memory store with TTL ---

type storeEntry struct {
	targetAngle int
	expiresAt   time.Time
}

// MemoryChallengeStore is a single-process ChallengeStore
type MemoryChallengeStore struct {
	mu sync.Mutex
	m  map[string]storeEntry
}

// NewMemoryChallengeStore creates a store and sweeps expired entries until ctx is done
func NewMemoryChallengeStore(ctx context.Context, sweepEvery time.Duration) *MemoryChallengeStore {
	s := &MemoryChallengeStore{m: make(map[string]storeEntry)}
	if sweepEvery > 0 {
		go s.cleanupLoop(ctx, sweepEvery)
	}
	return s
}

func (s *MemoryChallengeStore) Set(ctx context.Context, id string, angle int, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[id] = storeEntry{targetAngle: angle, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryChallengeStore) Take(ctx context.Context, id string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[id]
	if !ok {
		return 0, false, nil
	}
	delete(s.m, id)
	if time.Now().After(e.expiresAt) {
		return 0, false, nil
	}
	return e.targetAngle, true, nil
}

func (s *MemoryChallengeStore) cleanupLoop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for k, v := range s.m {
				if now.After(v.expiresAt) {
					delete(s.m, k)
				}
			}
			s.mu.Unlock()
		}
	}
}

// --- Background images ---

func generateRotateBackgrounds(n int, size int) []image.Image {
	if n <= 0 {
		n = 1
	}
	imgs := make([]image.Image, 0, n)
	for i := 0; i < n; i++ {
		imgs = append(imgs, upscale(newNoiseGradientImage(size/4, size/4), size))
	}
	return imgs
}

// upscale smooths a small noise tile up to the captcha size so the rotation cue
// comes from soft gradients rather than single pixels
func upscale(src image.Image, size int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

func newNoiseGradientImage(w, h int) image.Image {
	if w < 8 {
		w, h = 8, 8
	}
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := float64(x - w/2)
			dy := float64(y - h/2)
			t := math.Sqrt(dx*dx+dy*dy) / float64(w/2)
			if t > 1 {
				t = 1
			}
			base := uint8(200 - int(150*t))
			noise := uint8(rand.Intn(30))
			rgba.Set(x, y, color.RGBA{R: base + noise/3, G: base, B: 255 - base/2, A: 255})
		}
	}
	// an off-centre band gives the image an orientation
	drawRect(rgba, 1, 1, w/3, h/12+1, color.RGBA{R: 255, G: 255, B: 255, A: 96})
	drawRect(rgba, w/2, h/3, w/3, h/10+1, color.RGBA{R: 0, G: 0, B: 0, A: 64})
	return rgba
}

func drawRect(dst *image.RGBA, x, y, w, h int, c color.RGBA) {
	rect := image.Rect(x, y, x+w, y+h)
	draw.Draw(dst, rect, &image.Uniform{C: c}, image.Point{}, draw.Over)
}
