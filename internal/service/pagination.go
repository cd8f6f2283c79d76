package service

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items    []T
	Number   int
	Size     int
	Total    int
	NumPages int
}

// HasPrevious reports whether a page precedes this one.
func (p *Page[T]) HasPrevious() bool { return p.Number > 1 }

// HasNext reports whether a page follows this one.
func (p *Page[T]) HasNext() bool { return p.Number < p.NumPages }

// Previous is the number of the preceding page.
func (p *Page[T]) Previous() int { return p.Number - 1 }

// Next is the number of the following page.
func (p *Page[T]) Next() int { return p.Number + 1 }

// paginate validates a 1-based page number against the total number of
// items. The first page always exists, even for an empty listing; any other
// page outside the range is ErrNotFound.
func paginate(number, size, total int) (offset, numPages int, err error) {
	if size <= 0 {
		size = 10
	}
	numPages = (total + size - 1) / size
	if numPages == 0 {
		numPages = 1
	}
	if number < 1 || number > numPages {
		return 0, 0, ErrNotFound
	}
	return (number - 1) * size, numPages, nil
}
