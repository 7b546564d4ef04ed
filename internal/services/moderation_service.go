package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"
)

// ErrImageRejected is returned when SafeSearch flags an image as unsafe.
var ErrImageRejected = errors.New("image rejected: violates community guidelines")

// ModerationService runs Vision SafeSearch on freshly uploaded photo images
// and promotes safe ones from pending/ to photos/ inline, before the photo
// record is created.
type ModerationService struct {
	gcs *GCSStorage
}

func NewModerationService(gcs *GCSStorage) *ModerationService {
	return &ModerationService{gcs: gcs}
}

// ModerateAndPromote checks a pending/ ref. If safe, it is promoted to its
// final photos/ path and the final ref returned. If unsafe, the pending
// object is deleted and ErrImageRejected returned. Refs outside pending/ pass
// through untouched.
func (m *ModerationService) ModerateAndPromote(ctx context.Context, ref string) (string, error) {
	if !strings.HasPrefix(ref, "pending/") {
		// Already approved, nothing to do.
		return ref, nil
	}

	gcsURI := fmt.Sprintf("gs://%s/%s", m.gcs.bucket, ref)
	log.Printf("[moderation] running SafeSearch on %s", gcsURI)

	ss, err := DetectSafeSearch(ctx, gcsURI)
	if err != nil {
		log.Printf("[moderation] SafeSearch error ref=%s err=%v", ref, err)
		return "", err
	}

	if ss.Unsafe() {
		log.Printf("[moderation] rejected ref=%s adult=%s violence=%s racy=%s", ref, ss.Adult, ss.Violence, ss.Racy)
		if err := m.gcs.Remove(ctx, ref); err != nil {
			log.Printf("[moderation] failed to delete rejected object ref=%s err=%v", ref, err)
		}
		return "", ErrImageRejected
	}

	finalRef := "photos/" + path.Base(ref)
	return m.gcs.Promote(ctx, ref, finalRef)
}
