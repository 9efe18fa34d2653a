package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"elearnhub/internal/util"
	"elearnhub/pkg/domain"
	"elearnhub/pkg/storage"
)

// MediaPrefix is the URL path course thumbnails are served under.
const MediaPrefix = "/media/"

// UploadThumbnail stores a course image and points Course.Thumbnail at the
// media route. The previous object is removed best-effort.
func (a *App) UploadThumbnail(ctx context.Context, courseID, contentType string, r io.Reader, size int64) (domain.Course, error) {
	if a.objects == nil {
		return domain.Course{}, ErrThumbnailsDisabled
	}
	ext, ok := storage.ImageExtension(contentType)
	if !ok {
		return domain.Course{}, invalid("unsupported image type %q", contentType)
	}
	if size <= 0 || size > a.thumbnailMaxBytes {
		return domain.Course{}, invalid("thumbnail must be between 1 and %d bytes", a.thumbnailMaxBytes)
	}
	course, ok, err := a.store.GetCourse(courseID)
	if err != nil {
		return domain.Course{}, err
	}
	if !ok {
		return domain.Course{}, ErrCourseNotFound
	}

	key := storage.ThumbnailKey(course.ID, util.NewID(), ext)
	if err := a.objects.Put(ctx, key, r, size, contentType); err != nil {
		return domain.Course{}, fmt.Errorf("save thumbnail: %w", err)
	}
	thumbnail := MediaPrefix + key
	updated, ok, err := a.store.UpdateCourse(course.ID, domain.CoursePatch{Thumbnail: &thumbnail})
	if err != nil || !ok {
		_ = a.objects.Delete(ctx, key)
		if err == nil {
			err = ErrCourseNotFound
		}
		return domain.Course{}, err
	}
	if oldKey, ok := mediaKey(course.Thumbnail); ok {
		if err := a.objects.Delete(ctx, oldKey); err != nil {
			util.LoggerFromContext(ctx).Warn("delete old thumbnail failed", "key", oldKey, "err", err)
		}
	}
	return updated, nil
}

// ThumbnailURL presigns a stored thumbnail for a short-lived redirect.
func (a *App) ThumbnailURL(ctx context.Context, key string) (string, error) {
	if a.objects == nil {
		return "", ErrThumbnailsDisabled
	}
	key = path.Clean(strings.TrimPrefix(key, "/"))
	if !strings.HasPrefix(key, "thumbnails/") {
		return "", ErrThumbnailNotFound
	}
	url, err := a.objects.PresignGet(ctx, key, a.thumbnailURLTTL)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return "", ErrThumbnailNotFound
	}
	return url, err
}

func mediaKey(thumbnail string) (string, bool) {
	if !strings.HasPrefix(thumbnail, MediaPrefix+"thumbnails/") {
		return "", false
	}
	return strings.TrimPrefix(thumbnail, MediaPrefix), true
}
