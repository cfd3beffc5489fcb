package catalog

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// MaxStars is the number of stars in a full rating.
const MaxStars = 5

// UncategorizedLabel is shown for courses without a category.
const UncategorizedLabel = "Uncategorized"

// ViewRecord is a display-ready course. It is derived on every render and
// never cached.
type ViewRecord struct {
	ID          string
	Title       string
	Slug        string
	URL         string
	Thumbnail   string
	Description string

	PriceLabel         string
	OriginalPriceLabel string // set only when a discount applies
	DiscountPercent    int
	IsFree             bool

	RatingStars int
	RatingLabel string

	CategoryLabel   string
	LevelLabel      string
	EnrollmentLabel string
	LessonsLabel    string
	DurationLabel   string
}

// MapCourse converts a raw course into a ViewRecord. It is a pure function
// of c.
func MapCourse(c Course) ViewRecord {
	p := message.NewPrinter(language.English)

	v := ViewRecord{
		ID:            c.ID,
		Title:         c.Title,
		Slug:          c.Slug,
		URL:           "/courses/" + c.Slug,
		Thumbnail:     c.Thumbnail,
		Description:   c.ShortDescription,
		CategoryLabel: UncategorizedLabel,
	}

	effective := c.EffectivePrice()
	if effective <= 0 {
		v.IsFree = true
		v.PriceLabel = "Free"
	} else {
		v.PriceLabel = formatPrice(p, effective)
	}
	if c.DiscountPrice != nil && c.Price != nil && *c.DiscountPrice < *c.Price && *c.Price > 0 {
		v.OriginalPriceLabel = formatPrice(p, *c.Price)
		v.DiscountPercent = int(math.Round((*c.Price - *c.DiscountPrice) / *c.Price * 100))
	}

	if c.Rating != nil {
		v.RatingStars = stars(*c.Rating)
		v.RatingLabel = fmt.Sprintf("%.1f", *c.Rating)
	}

	if c.Category != nil && c.Category.Name != "" {
		v.CategoryLabel = c.Category.Name
	}
	if c.Level != LevelAny {
		v.LevelLabel = c.Level.Label()
	}

	v.EnrollmentLabel = plural(p, c.Enrollments(), "student", "students")
	if c.LessonCount != nil {
		v.LessonsLabel = plural(p, *c.LessonCount, "lesson", "lessons")
	}
	if c.DurationMinutes != nil && *c.DurationMinutes > 0 {
		v.DurationLabel = formatDuration(*c.DurationMinutes)
	}

	return v
}

// MapCourses maps every course in order.
func MapCourses(courses []Course) []ViewRecord {
	out := make([]ViewRecord, len(courses))
	for i, c := range courses {
		out[i] = MapCourse(c)
	}
	return out
}

func formatPrice(p *message.Printer, v float64) string {
	return p.Sprintf("$%.2f", v)
}

func stars(rating float64) int {
	n := int(math.Round(rating))
	if n < 0 {
		return 0
	}
	if n > MaxStars {
		return MaxStars
	}
	return n
}

func plural(p *message.Printer, n int, one, many string) string {
	if n == 1 {
		return p.Sprintf("%d %s", n, one)
	}
	return p.Sprintf("%d %s", n, many)
}

func formatDuration(minutes int) string {
	h, m := minutes/60, minutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh %dm", h, m)
	}
}
