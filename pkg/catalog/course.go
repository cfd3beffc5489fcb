package catalog

import "time"

// Category is a course category as returned by GET /categories and embedded
// in course records.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Course is a catalog record exactly as the REST API returns it.
// Optional numeric fields are pointers so that "missing" can be told apart
// from zero. Course values are never mutated after decoding.
type Course struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Slug             string     `json:"slug"`
	ShortDescription string     `json:"shortDescription,omitempty"`
	Thumbnail        string     `json:"thumbnail,omitempty"`
	Price            *float64   `json:"price,omitempty"`
	DiscountPrice    *float64   `json:"discountPrice,omitempty"`
	Category         *Category  `json:"category,omitempty"`
	Level            Level      `json:"level,omitempty"`
	Rating           *float64   `json:"rating,omitempty"`
	EnrollmentCount  *int       `json:"enrollmentCount,omitempty"`
	LessonCount      *int       `json:"lessonCount,omitempty"`
	DurationMinutes  *int       `json:"durationMinutes,omitempty"`
	CreatedAt        *time.Time `json:"createdAt,omitempty"`
}

// EffectivePrice is the discounted price if present, else the original price,
// else 0.
func (c Course) EffectivePrice() float64 {
	if c.DiscountPrice != nil {
		return *c.DiscountPrice
	}
	if c.Price != nil {
		return *c.Price
	}
	return 0
}

// Enrollments returns the enrollment count, treating a missing count as 0.
func (c Course) Enrollments() int {
	if c.EnrollmentCount == nil {
		return 0
	}
	return *c.EnrollmentCount
}

// RatingValue returns the rating, treating a missing rating as 0.
func (c Course) RatingValue() float64 {
	if c.Rating == nil {
		return 0
	}
	return *c.Rating
}

// Created returns the creation time, treating a missing timestamp as the epoch.
func (c Course) Created() time.Time {
	if c.CreatedAt == nil {
		return time.Unix(0, 0).UTC()
	}
	return *c.CreatedAt
}

// CoursePage is one page of courses plus the total-count metadata.
type CoursePage struct {
	Courses    []Course
	TotalCount int
	TotalPages int
}
