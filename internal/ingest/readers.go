// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ingest parses MovieLens datasets and loads them into the
// database. Both the legacy "::"-separated .dat format (ml-1m) and the
// CSV format (ml-latest) are supported; the format is chosen by file
// extension.
package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cinematch/cinematch/internal/models"
)

const datSeparator = "::"

// ReadMovies parses a MovieLens movies file. The .dat format is
// "MovieID::Title::Genres"; the CSV format has a movieId,title,genres
// header row.
func ReadMovies(r io.Reader, filename string) ([]models.Movie, error) {
	if strings.HasSuffix(filename, ".dat") {
		return readMoviesDat(r)
	}
	return readMoviesCSV(r)
}

// ReadRatings parses a MovieLens ratings file. The .dat format is
// "UserID::MovieID::Rating::Timestamp"; the CSV format has a
// userId,movieId,rating,timestamp header row.
func ReadRatings(r io.Reader, filename string) ([]models.Rating, error) {
	if strings.HasSuffix(filename, ".dat") {
		return readRatingsDat(r)
	}
	return readRatingsCSV(r)
}

func readMoviesDat(r io.Reader) ([]models.Movie, error) {
	var out []models.Movie
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		parts := strings.SplitN(text, datSeparator, 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("movies line %d: expected 3 fields, got %d", line, len(parts))
		}
		id, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("movies line %d: bad movie id %q: %w", line, parts[0], err)
		}
		out = append(out, models.Movie{MovieID: id, Title: parts[1], Genres: parts[2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read movies: %w", err)
	}
	return out, nil
}

func readMoviesCSV(r io.Reader) ([]models.Movie, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read movies csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	out := make([]models.Movie, 0, len(records)-1)
	for i, rec := range records {
		if i == 0 && strings.EqualFold(rec[0], "movieId") {
			continue
		}
		id, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("movies row %d: bad movie id %q: %w", i+1, rec[0], err)
		}
		out = append(out, models.Movie{MovieID: id, Title: rec[1], Genres: rec[2]})
	}
	return out, nil
}

func readRatingsDat(r io.Reader) ([]models.Rating, error) {
	var out []models.Rating
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		parts := strings.SplitN(text, datSeparator, 4)
		if len(parts) != 4 {
			return nil, fmt.Errorf("ratings line %d: expected 4 fields, got %d", line, len(parts))
		}
		rating, err := parseRating(parts[0], parts[1], parts[2], parts[3])
		if err != nil {
			return nil, fmt.Errorf("ratings line %d: %w", line, err)
		}
		out = append(out, rating)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ratings: %w", err)
	}
	return out, nil
}

func readRatingsCSV(r io.Reader) ([]models.Rating, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read ratings csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	out := make([]models.Rating, 0, len(records)-1)
	for i, rec := range records {
		if i == 0 && strings.EqualFold(rec[0], "userId") {
			continue
		}
		rating, err := parseRating(rec[0], rec[1], rec[2], rec[3])
		if err != nil {
			return nil, fmt.Errorf("ratings row %d: %w", i+1, err)
		}
		out = append(out, rating)
	}
	return out, nil
}

func parseRating(userField, movieField, ratingField, tsField string) (models.Rating, error) {
	userID, err := strconv.ParseInt(userField, 10, 64)
	if err != nil {
		return models.Rating{}, fmt.Errorf("bad user id %q: %w", userField, err)
	}
	movieID, err := strconv.ParseInt(movieField, 10, 64)
	if err != nil {
		return models.Rating{}, fmt.Errorf("bad movie id %q: %w", movieField, err)
	}
	value, err := strconv.ParseFloat(ratingField, 64)
	if err != nil {
		return models.Rating{}, fmt.Errorf("bad rating %q: %w", ratingField, err)
	}
	ts, err := strconv.ParseInt(tsField, 10, 64)
	if err != nil {
		return models.Rating{}, fmt.Errorf("bad timestamp %q: %w", tsField, err)
	}
	return models.Rating{
		UserID:  userID,
		MovieID: movieID,
		Rating:  value,
		RatedAt: time.Unix(ts, 0).UTC(),
	}, nil
}
