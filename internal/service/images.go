package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/bike-marketplace/internal/config"
	"github.com/iliyamo/bike-marketplace/internal/form"
	"github.com/iliyamo/bike-marketplace/internal/storage"
	"github.com/iliyamo/bike-marketplace/internal/utils"
)

// imageExt maps accepted upload types to the stored file extension.
var imageExt = map[string]string{
	"image/webp": "webp",
	"image/jpeg": "jpg",
	"image/png":  "png",
}

// checkImages applies the upload limits to every file before any blob is
// written: count first, then per file its size, the running total and its
// type.
func checkImages(files []form.Upload, lim config.Limits) error {
	if len(files) > lim.MaxImages {
		return invalid(MsgTooManyImages)
	}
	var total int64
	for _, f := range files {
		total += f.Size
		if f.Size > lim.MaxImageBytes {
			return invalid(MsgImageTooLarge)
		}
		if total > lim.MaxTotalUploadBytes {
			return invalid(MsgUploadTooLarge)
		}
		if _, ok := imageExt[f.ContentType]; !ok {
			return invalid(MsgInvalidImageType)
		}
	}
	return nil
}

// imageKey namespaces an image under its listing with a random leaf name.
func imageKey(listingID, contentType string) string {
	return fmt.Sprintf("img/listings/%s/%s.%s", listingID, utils.NewID(), imageExt[contentType])
}

// storeImages writes checked files for a listing.  When a put fails the
// images already written by this call are released again.
func storeImages(ctx context.Context, blobs *storage.Accounted, listingID string, files []form.Upload) ([]string, []int64, error) {
	keys := make([]string, 0, len(files))
	sizes := make([]int64, 0, len(files))
	for _, f := range files {
		key := imageKey(listingID, f.ContentType)
		n, err := blobs.Put(ctx, key, f.Data, storage.PutOptions{ContentType: f.ContentType})
		if err != nil {
			rollback := blobs.Release(ctx, keys, sizes)
			return nil, nil, &Error{
				Kind:    KindInternal,
				Message: "Image upload failed.",
				Err:     joinRollback(err, rollback),
			}
		}
		keys = append(keys, key)
		sizes = append(sizes, n)
	}
	return keys, sizes, nil
}

func joinRollback(err, rollback error) error {
	if rollback == nil {
		return err
	}
	return fmt.Errorf("%w (rollback: %v)", err, rollback)
}
