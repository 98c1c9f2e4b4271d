// package carousel steps through the images of one book.
//
// The index is cyclic: [Carousel.Next] after the last image returns to the first and [Carousel.Previous] is its
// exact inverse. An empty carousel has nothing to show and every navigation call is a no-op that reports false.
package carousel

import (
	"net/url"
	"strings"

	"github.com/desertthunder/booklister/internal/models"
)

// Carousel holds the current position within a fixed image sequence.
type Carousel struct {
	baseURL string
	bookID  string
	images  []models.Image
	index   int
}

// New creates a carousel positioned on the first image. The image slice is copied.
func New(baseURL, bookID string, images []models.Image) *Carousel {
	return &Carousel{
		baseURL: baseURL,
		bookID:  bookID,
		images:  append([]models.Image(nil), images...),
	}
}

func (c *Carousel) Len() int    { return len(c.images) }
func (c *Carousel) Empty() bool { return len(c.images) == 0 }
func (c *Carousel) Index() int  { return c.index }

// Current returns the image under the cursor.
func (c *Carousel) Current() (models.Image, bool) {
	if c.Empty() {
		return models.Image{}, false
	}
	return c.images[c.index], true
}

// Next advances by one, wrapping to the first image.
func (c *Carousel) Next() bool {
	if c.Empty() {
		return false
	}
	c.index = (c.index + 1) % len(c.images)
	return true
}

// Previous steps back by one, wrapping to the last image.
func (c *Carousel) Previous() bool {
	if c.Empty() {
		return false
	}
	c.index = (c.index - 1 + len(c.images)) % len(c.images)
	return true
}

// Jump moves straight to image i. Out-of-range indexes leave the position unchanged and report false.
func (c *Carousel) Jump(i int) bool {
	if i < 0 || i >= len(c.images) {
		return false
	}
	c.index = i
	return true
}

// URL returns the address of image i, or "" when i is out of range.
func (c *Carousel) URL(i int) string {
	if i < 0 || i >= len(c.images) {
		return ""
	}
	return ImageURL(c.baseURL, c.bookID, c.images[i].Path)
}

// CurrentURL returns the address of the image under the cursor.
func (c *Carousel) CurrentURL() string {
	return c.URL(c.index)
}

// URLs returns the address of every image in order.
func (c *Carousel) URLs() []string {
	urls := make([]string, len(c.images))
	for i := range c.images {
		urls[i] = c.URL(i)
	}
	return urls
}

// ImageURL builds {base}/images/{bookID}/{name} where name is the final segment of the stored path.
func ImageURL(baseURL, bookID, storedPath string) string {
	u, err := url.JoinPath(baseURL, "images", bookID, lastSegment(storedPath))
	if err != nil {
		return strings.TrimRight(baseURL, "/") + "/images/" + bookID + "/" + lastSegment(storedPath)
	}
	return u
}

func lastSegment(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}
