// Package site holds the marketing content of the company website: company
// details, navigation, services, products, solutions, clients and the about
// page. Content is a YAML document; a default copy is embedded.
package site

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed site.yaml
var defaultContent []byte

var ErrUnknownService = errors.New("site: unknown service")

type Company struct {
	Name        string    `yaml:"name"`
	LegalName   string    `yaml:"legal_name"`
	Tagline     string    `yaml:"tagline"`
	Description string    `yaml:"description"`
	Phones      []Contact `yaml:"phones"`
	Emails      []Contact `yaml:"emails"`
	Address     []string  `yaml:"address"`
	Hours       string    `yaml:"hours"`
}

// Contact is a labelled phone number or email address.
type Contact struct {
	Label   string `yaml:"label"`
	Number  string `yaml:"number,omitempty"`
	Address string `yaml:"address,omitempty"`
}

type Link struct {
	Label string `yaml:"label"`
	Path  string `yaml:"path"`
}

type Slide struct {
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
	Image    string `yaml:"image"`
}

// Offering is a service or a product.
type Offering struct {
	Slug        string   `yaml:"slug"`
	Name        string   `yaml:"name"`
	Summary     string   `yaml:"summary"`
	Description string   `yaml:"description"`
	Image       string   `yaml:"image"`
	Features    []string `yaml:"features"`
	Benefits    []string `yaml:"benefits"`
}

// Link is the detail page of a service.
func (o Offering) Link() string {
	return "/layanan/" + o.Slug + "/"
}

type Card struct {
	Metric      string `yaml:"metric,omitempty"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

type Solutions struct {
	Intro      string `yaml:"intro"`
	Industries []Card `yaml:"industries"`
	Steps      []Card `yaml:"steps"`
	Outcomes   []Card `yaml:"outcomes"`
}

type Client struct {
	Name     string `yaml:"name"`
	Industry string `yaml:"industry"`
	Logo     string `yaml:"logo"`
}

type CaseStudy struct {
	Client      string `yaml:"client"`
	Industry    string `yaml:"industry"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Result      string `yaml:"result"`
	Image       string `yaml:"image"`
}

type Testimonial struct {
	Name     string `yaml:"name"`
	Position string `yaml:"position"`
	Company  string `yaml:"company"`
	Content  string `yaml:"content"`
}

type Clients struct {
	Featured     []Client      `yaml:"featured"`
	CaseStudies  []CaseStudy   `yaml:"case_studies"`
	Testimonials []Testimonial `yaml:"testimonials"`
}

type About struct {
	Story   string   `yaml:"story"`
	Vision  string   `yaml:"vision"`
	Mission []string `yaml:"mission"`
	Values  []Card   `yaml:"values"`
}

// Catalog is the full site content.
type Catalog struct {
	Company   Company    `yaml:"company"`
	Nav       []Link     `yaml:"nav"`
	Hero      []Slide    `yaml:"hero"`
	Services  []Offering `yaml:"services"`
	Products  []Offering `yaml:"products"`
	Solutions Solutions  `yaml:"solutions"`
	Clients   Clients    `yaml:"clients"`
	About     About      `yaml:"about"`
}

// Decode reads a catalog from YAML and validates it.
func Decode(r io.Reader) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode site content: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Decode(bytes.NewReader(defaultContent))
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads the catalog at path, or the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open site content: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Validate checks that the catalog has a company name and that service and
// product slugs are present and unique.
func (c *Catalog) Validate() error {
	if c.Company.Name == "" {
		return errors.New("site: company name is required")
	}
	seen := make(map[string]bool)
	for _, list := range [][]Offering{c.Services, c.Products} {
		for _, o := range list {
			if o.Slug == "" || o.Name == "" {
				return fmt.Errorf("site: offering %q needs a slug and a name", o.Name)
			}
			if seen[o.Slug] {
				return fmt.Errorf("site: duplicate slug %q", o.Slug)
			}
			seen[o.Slug] = true
		}
	}
	return nil
}

// Service looks up a service by slug.
func (c *Catalog) Service(slug string) (Offering, error) {
	for _, s := range c.Services {
		if s.Slug == slug {
			return s, nil
		}
	}
	return Offering{}, fmt.Errorf("%w: %s", ErrUnknownService, slug)
}

// Pages lists the static page paths, for the sitemap.
func (c *Catalog) Pages() []string {
	pages := []string{"/", "/produk-layanan/", "/solusi/", "/klien/", "/tentang-kami/", "/artikel/", "/kontak/"}
	for _, s := range c.Services {
		pages = append(pages, s.Link())
	}
	return pages
}
