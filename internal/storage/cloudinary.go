package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore keeps images under <folder>/<articleNumber>/ in Cloudinary
// and hands out secure URLs.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryStore(cloudinaryURL, folder string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &CloudinaryStore{cld: cld, folder: strings.Trim(folder, "/")}, nil
}

func (s *CloudinaryStore) prefix(articleNumber string) string {
	if s.folder == "" {
		return articleNumber + "/"
	}
	return s.folder + "/" + articleNumber + "/"
}

func (s *CloudinaryStore) Upload(ctx context.Context, r io.Reader, articleNumber, filename string) (string, error) {
	if !safeSegment(articleNumber) || !safeSegment(filename) {
		return "", fmt.Errorf("invalid image location %q/%q", articleNumber, filename)
	}
	overwrite := false
	publicID := s.prefix(articleNumber) + strings.TrimSuffix(filename, path.Ext(filename))
	res, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID:     publicID,
		Overwrite:    &overwrite,
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("failed to upload image: %s", res.Error.Message)
	}
	if res.SecureURL != "" {
		return res.SecureURL, nil
	}
	return forceHTTPS(res.URL), nil
}

func (s *CloudinaryStore) List(ctx context.Context, articleNumber string) ([]string, error) {
	out := []string{}
	if !safeSegment(articleNumber) {
		return out, nil
	}
	params := admin.AssetsParams{
		AssetType:    "image",
		DeliveryType: "upload",
		Prefix:       s.prefix(articleNumber),
		MaxResults:   500,
	}
	for {
		res, err := s.cld.Admin.Assets(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to list images: %w", err)
		}
		if res.Error.Message != "" {
			return nil, fmt.Errorf("failed to list images: %s", res.Error.Message)
		}
		for _, a := range res.Assets {
			u := a.SecureURL
			if u == "" {
				u = forceHTTPS(a.URL)
			}
			out = append(out, u)
		}
		if res.NextCursor == "" {
			break
		}
		params.NextCursor = res.NextCursor
	}
	sort.Strings(out)
	return out, nil
}

func (s *CloudinaryStore) Delete(ctx context.Context, rawURL, _ string) error {
	publicID, err := PublicIDFromURL(rawURL)
	if err != nil {
		return err
	}
	res, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: "image",
	})
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	// "not found" means already gone
	if res.Error.Message != "" {
		return fmt.Errorf("failed to delete image: %s", res.Error.Message)
	}
	return nil
}

var versionSegment = regexp.MustCompile(`^v\d+$`)

// PublicIDFromURL recovers the public id from a delivery URL such as
// https://res.cloudinary.com/<cloud>/image/upload/v123/listings/A1/x.jpg.
func PublicIDFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	i := 0
	for i < len(segs) && segs[i] != "upload" {
		i++
	}
	if i >= len(segs)-1 {
		return "", fmt.Errorf("not a blob url: %q", raw)
	}
	rest := segs[i+1:]
	if len(rest) > 1 && versionSegment.MatchString(rest[0]) {
		rest = rest[1:]
	}
	id := strings.Join(rest, "/")
	return strings.TrimSuffix(id, path.Ext(id)), nil
}

func forceHTTPS(u string) string {
	if strings.HasPrefix(u, "http://") {
		return "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}
