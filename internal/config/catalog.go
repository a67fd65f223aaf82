package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"price-tracker/internal/model"
)

// catalogFile is the on-disk shape of CATALOG_PATH
type catalogFile struct {
	Products []model.Product `yaml:"products"`
}

// LoadProducts reads the YAML catalog and the links file. Either file may be
// missing. Links whose URL is already in the catalog are skipped.
func LoadProducts(catalogPath, linksPath string) ([]model.Product, error) {
	products, err := LoadCatalog(catalogPath)
	if err != nil {
		return nil, err
	}

	links, err := ReadLinks(linksPath)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(products))
	for _, p := range products {
		seen[p.URL] = true
	}
	for _, link := range links {
		if seen[link] {
			continue
		}
		seen[link] = true
		products = append(products, model.Product{URL: link, Source: SourceForURL(link)})
	}

	return products, nil
}

// LoadCatalog reads a YAML product catalog, expanding ${VAR} references
func LoadCatalog(path string) ([]model.Product, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &file); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}

	for i := range file.Products {
		p := &file.Products[i]
		p.Source = model.Source(strings.ToLower(string(p.Source)))
		if p.Source == "" {
			p.Source = SourceForURL(p.URL)
		}
	}
	return file.Products, nil
}

// ReadLinks reads one URL per line, ignoring blanks and # comments
func ReadLinks(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open links file: %w", err)
	}
	defer f.Close()

	var links []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		links = append(links, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read links file: %w", err)
	}
	return links, nil
}

// AppendLinks appends URLs to the links file, creating it when needed
func AppendLinks(path string, links []string) error {
	if len(links) == 0 {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open links file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, link := range links {
		if _, err := w.WriteString(link + "\n"); err != nil {
			return fmt.Errorf("write links file: %w", err)
		}
	}
	return w.Flush()
}

// SourceForURL infers the source tag from a product URL's host.
// It returns "" for hosts no adapter understands.
func SourceForURL(raw string) model.Source {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())

	switch {
	case host == "flipkart.com" || strings.HasSuffix(host, ".flipkart.com"):
		return model.SourceFlipkart
	case strings.HasPrefix(host, "amazon.") || strings.Contains(host, ".amazon."):
		return model.SourceAmazon
	}
	return ""
}
