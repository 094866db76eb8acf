package handling

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"perfumery_server/lib"
	"perfumery_server/structs"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ParseProductListOptions parses catalog query parameters into ProductListOptions
func ParseProductListOptions(r *http.Request) (*structs.ProductListOptions, error) {
	query := r.URL.Query()

	opts := &structs.ProductListOptions{}
	if len(query) == 0 {
		return opts, nil
	}

	var err error
	if opts.Page, err = intParam(query.Get("page")); err != nil {
		return nil, fmt.Errorf("%w: page must be a number", lib.ErrInvalid)
	}
	if opts.PageSize, err = intParam(query.Get("page_size")); err != nil {
		return nil, fmt.Errorf("%w: page_size must be a number", lib.ErrInvalid)
	}

	opts.Category = structs.Category(strings.ToLower(strings.TrimSpace(query.Get("category"))))
	opts.Search = strings.TrimSpace(query.Get("search"))

	if minPrice := query.Get("min_price"); minPrice != "" {
		v, err := strconv.ParseInt(minPrice, 10, 64)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%w: min_price must be a non-negative amount in cents", lib.ErrInvalid)
		}
		opts.MinPrice = &v
	}
	if maxPrice := query.Get("max_price"); maxPrice != "" {
		v, err := strconv.ParseInt(maxPrice, 10, 64)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%w: max_price must be a non-negative amount in cents", lib.ErrInvalid)
		}
		opts.MaxPrice = &v
	}

	if inStock := query.Get("in_stock"); inStock != "" {
		v, err := strconv.ParseBool(inStock)
		if err != nil {
			return nil, fmt.Errorf("%w: in_stock must be true or false", lib.ErrInvalid)
		}
		opts.InStock = &v
	}

	if sort := structs.ProductSort(strings.ToLower(query.Get("sort"))); sort != "" {
		switch sort {
		case structs.SortNewest, structs.SortPriceAsc, structs.SortPriceDesc, structs.SortName, structs.SortRating:
			opts.Sort = sort
		default:
			return nil, fmt.Errorf("%w: unknown sort %q", lib.ErrInvalid, sort)
		}
	}

	return opts, nil
}

// ParseOrderListOptions parses the admin order listing query
func ParseOrderListOptions(r *http.Request) (*structs.OrderListOptions, error) {
	query := r.URL.Query()

	opts := &structs.OrderListOptions{
		Status: strings.ToLower(strings.TrimSpace(query.Get("status"))),
		Search: strings.TrimSpace(query.Get("search")),
	}

	var err error
	if opts.Page, err = intParam(query.Get("page")); err != nil {
		return nil, fmt.Errorf("%w: page must be a number", lib.ErrInvalid)
	}
	if opts.PageSize, err = intParam(query.Get("page_size")); err != nil {
		return nil, fmt.Errorf("%w: page_size must be a number", lib.ErrInvalid)
	}
	return opts, nil
}

// ParseID reads a uuid path parameter
func ParseID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s %q", lib.ErrInvalid, name, raw)
	}
	return id, nil
}

// ParseProductForm reads an admin product payload. Multipart forms may carry
// an image file; any other content type is decoded as JSON.
func ParseProductForm(r *http.Request, maxImageBytes int64) (*structs.ProductInput, *structs.ProductImage, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" && mediaType != "application/x-www-form-urlencoded" {
		input, err := lib.ExtractAndValidateBody[structs.ProductInput](r)
		if err != nil {
			return nil, nil, err
		}
		return input, nil, nil
	}

	if err := r.ParseMultipartForm(maxImageBytes + 1<<20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, nil, fmt.Errorf("%w: %v", lib.ErrMalformedBody, err)
	}

	// the admin form posts every field; blank numbers mean "not given"
	input := &structs.ProductInput{}
	if v, ok := formValue(r, "name"); ok {
		input.Name = &v
	}
	if v, ok := formValue(r, "description"); ok {
		input.Description = &v
	}
	if v, ok := formValue(r, "category"); ok && v != "" {
		c := structs.Category(strings.ToLower(v))
		input.Category = &c
	}
	if v, ok := formValue(r, "price"); ok && v != "" {
		price, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: price must be an amount in cents", lib.ErrInvalid)
		}
		input.Price = &price
	}
	if v, ok := formValue(r, "quantity"); ok && v != "" {
		qty, err := strconv.Atoi(v)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: quantity must be a whole number", lib.ErrInvalid)
		}
		input.Quantity = &qty
	}
	if v, ok := formValue(r, "rating"); ok && v != "" {
		rating, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: rating must be a number", lib.ErrInvalid)
		}
		input.Rating = &rating
	}
	if v, ok := formValue(r, "instock"); ok && v != "" {
		inStock, err := strconv.ParseBool(v)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: instock must be true or false", lib.ErrInvalid)
		}
		input.InStock = &inStock
	}

	if err := lib.Validate(input); err != nil {
		return nil, nil, err
	}

	image, err := formImage(r, maxImageBytes)
	if err != nil {
		return nil, nil, err
	}
	return input, image, nil
}

func formImage(r *http.Request, maxImageBytes int64) (*structs.ProductImage, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", lib.ErrMalformedBody, err)
	}
	defer file.Close()

	if maxImageBytes > 0 && header.Size > maxImageBytes {
		return nil, lib.ErrImageTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	return &structs.ProductImage{
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}

func formValue(r *http.Request, key string) (string, bool) {
	if _, ok := r.Form[key]; !ok {
		return "", false
	}
	return strings.TrimSpace(r.FormValue(key)), true
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
