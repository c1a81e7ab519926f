package domain

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ProductRecord is one storefront product. SKU is the identifier used for
// deduplication and store reconciliation.
type ProductRecord struct {
	SKU            string            `json:"sku" bson:"sku"`
	Title          string            `json:"title,omitempty" bson:"title"`
	Price          string            `json:"price,omitempty" bson:"price"`
	Availability   string            `json:"availability,omitempty" bson:"availability"`
	URL            string            `json:"url" bson:"url"`
	Images         []string          `json:"images" bson:"images"`
	TagsImages     []string          `json:"tags_images" bson:"tags_images"`
	Description    string            `json:"description,omitempty" bson:"description"`
	Specifications map[string]string `json:"specifications,omitempty" bson:"specifications"`
	MainCategory   []string          `json:"main_category" bson:"main_category"`
	SubCategory    []string          `json:"sub_category" bson:"sub_category"`
	ProductType    []string          `json:"product_type" bson:"product_type"`
	Deleted        bool              `json:"deleted" bson:"deleted"`
}

// Identifier returns the trimmed sku, or ErrMissingIdentifier when it is blank.
func (p ProductRecord) Identifier() (string, error) {
	sku := strings.TrimSpace(p.SKU)
	if sku == "" {
		return "", fmt.Errorf("%s: %w", p.URL, ErrMissingIdentifier)
	}
	return sku, nil
}

// Clone returns a deep copy so merged or stored records never share slices.
func (p ProductRecord) Clone() ProductRecord {
	c := p
	c.Images = slices.Clone(p.Images)
	c.TagsImages = slices.Clone(p.TagsImages)
	c.Specifications = maps.Clone(p.Specifications)
	c.MainCategory = slices.Clone(p.MainCategory)
	c.SubCategory = slices.Clone(p.SubCategory)
	c.ProductType = slices.Clone(p.ProductType)
	return c
}

// Equal compares every field. Nil and empty collections are equal.
func (p ProductRecord) Equal(o ProductRecord) bool {
	return p.SKU == o.SKU &&
		p.Title == o.Title &&
		p.Price == o.Price &&
		p.Availability == o.Availability &&
		p.URL == o.URL &&
		p.Description == o.Description &&
		p.Deleted == o.Deleted &&
		slices.Equal(p.Images, o.Images) &&
		slices.Equal(p.TagsImages, o.TagsImages) &&
		maps.Equal(p.Specifications, o.Specifications) &&
		slices.Equal(p.MainCategory, o.MainCategory) &&
		slices.Equal(p.SubCategory, o.SubCategory) &&
		slices.Equal(p.ProductType, o.ProductType)
}

// WithCategoryPath returns a copy carrying the hierarchy levels as single-element lists.
func (p ProductRecord) WithCategoryPath(path []string) ProductRecord {
	c := p.Clone()
	c.MainCategory = levelOf(path, 0)
	c.SubCategory = levelOf(path, 1)
	c.ProductType = levelOf(path, 2)
	return c
}

func levelOf(path []string, level int) []string {
	if level >= len(path) || path[level] == "" {
		return []string{}
	}
	return []string{path[level]}
}
