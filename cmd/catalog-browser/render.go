package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/Sternrassler/catalog-client/pkg/browse"
	"github.com/Sternrassler/catalog-client/pkg/catalog"
)

// renderView prints the current page.
func renderView(w io.Writer, v browse.View, categories []catalog.Category) {
	fmt.Fprintln(w, strings.Repeat("-", 72))
	fmt.Fprintf(w, "%s | %s | sort: %s\n",
		categoryName(v.Filter.CategoryID, categories), v.Filter.Level.Label(), v.Sort.Label())

	if v.Error != "" {
		fmt.Fprintf(w, "! %s\n", v.Error)
	}
	if v.Loading {
		fmt.Fprintln(w, "Loading...")
	}

	if len(v.Records) == 0 && !v.Loading {
		fmt.Fprintln(w, "No courses found.")
	}
	for i, r := range v.Records {
		renderRecord(w, v.From+i, r)
	}

	pages := max(v.TotalPages, 1)
	fmt.Fprintf(w, "Showing %d-%d of %d | page %d/%d\n", v.From, v.To, v.TotalCount, v.Page, pages)
}

func renderRecord(w io.Writer, n int, r catalog.ViewRecord) {
	price := r.PriceLabel
	if r.OriginalPriceLabel != "" {
		price = fmt.Sprintf("%s (was %s, -%d%%)", r.PriceLabel, r.OriginalPriceLabel, r.DiscountPercent)
	}

	fmt.Fprintf(w, "%3d. %s  %s\n", n, r.Title, price)

	details := []string{r.CategoryLabel}
	if r.LevelLabel != "" {
		details = append(details, r.LevelLabel)
	}
	if r.RatingLabel != "" {
		details = append(details, stars(r.RatingStars)+" "+r.RatingLabel)
	}
	details = append(details, r.EnrollmentLabel)
	if r.LessonsLabel != "" {
		details = append(details, r.LessonsLabel)
	}
	if r.DurationLabel != "" {
		details = append(details, r.DurationLabel)
	}
	fmt.Fprintf(w, "     %s\n", strings.Join(details, " | "))
}

func stars(n int) string {
	return strings.Repeat("*", n) + strings.Repeat(".", 5-n)
}

func categoryName(id string, categories []catalog.Category) string {
	if id == "" {
		return "All categories"
	}
	for _, c := range categories {
		if c.ID == id {
			return c.Name
		}
	}
	return id
}

func renderCategories(w io.Writer, categories []catalog.Category) {
	if len(categories) == 0 {
		fmt.Fprintln(w, "No categories available.")
		return
	}
	for _, c := range categories {
		fmt.Fprintf(w, "  %-20s %s\n", c.ID, c.Name)
	}
}
