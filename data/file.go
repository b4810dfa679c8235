package data

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"pacbayes_lib/utils"
)

// Line is one labelled example.
type Line struct {
	Inputs []float64
	Label  int
}

type Lines []Line

// BinaryLabel maps an MNIST digit to the two-class problem: 0-4 → 0, 5-9 → 1.
func BinaryLabel(digit int) int {
	if digit >= 5 {
		return 1
	}
	return 0
}

// Input file formats accepted by LoadFile.
const (
	FormatMNIST = "mnist" // digit,pixel... with pixels in 0-255
	FormatPlain = "plain" // input,...,input,label with a class index
)

// LoadFile reads filename in the given format. A missing file is reported
// as a *utils.MissingArtifactError.
func LoadFile(filename, format string, inputNum int) (Lines, error) {
	var parse func(io.Reader, int) (Lines, error)
	switch format {
	case FormatMNIST:
		parse = ReadMNIST
	case FormatPlain:
		parse = GetLines
	default:
		return nil, &utils.ConfigurationError{Field: "format", Reason: fmt.Sprintf("unknown input format %q", format)}
	}
	file, err := os.Open(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &utils.MissingArtifactError{Path: filename}
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return parse(file, inputNum)
}

// GetLinesMNIST reads an MNIST CSV file; first val in line is the digit,
// the rest are the pixel densities (0-255), scaled to [0,1].
func GetLinesMNIST(filename string, inputNum int) (Lines, error) {
	return LoadFile(filename, FormatMNIST, inputNum)
}

// ReadMNIST parses MNIST CSV records from r.
func ReadMNIST(r io.Reader, inputNum int) (Lines, error) {
	var lines Lines
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = inputNum + 1
	for lineNum := 1; ; lineNum++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return lines, fmt.Errorf("reading MNIST record %d: %w", lineNum, err)
		}
		digit, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil || digit < 0 || digit > 9 {
			return lines, fmt.Errorf("line %d: bad digit %q", lineNum, record[0])
		}
		inputs := make([]float64, inputNum)
		for i := range inputs {
			x, err := strconv.ParseFloat(strings.TrimSpace(record[i+1]), 64)
			if err != nil {
				return lines, fmt.Errorf("line %d: parsing pixel %d: %w", lineNum, i, err)
			}
			inputs[i] = x / 255.0
		}
		lines = append(lines, Line{Inputs: inputs, Label: BinaryLabel(digit)})
	}
	return lines, nil
}

// GetLines reads comma separated "input,...,input,label" rows where the
// label is already a class index.
func GetLines(reader io.Reader, inputNum int) (Lines, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var lines Lines
	var lineNum int
	for scanner.Scan() {
		lineNum++
		splits := strings.Split(scanner.Text(), ",")
		if len(splits) != inputNum+1 {
			return lines, errInvalidLine{
				lineNum:  lineNum,
				splits:   len(splits),
				expected: inputNum + 1,
			}
		}
		inputs := make([]float64, inputNum)
		for i := 0; i < inputNum; i++ {
			num, err := strconv.ParseFloat(splits[i], 64)
			if err != nil {
				return lines, fmt.Errorf("parsing input: %w", err)
			}
			inputs[i] = num
		}
		label, err := strconv.Atoi(strings.TrimSpace(splits[inputNum]))
		if err != nil {
			return lines, fmt.Errorf("parsing label: %w", err)
		}
		lines = append(lines, Line{Inputs: inputs, Label: label})
	}
	return lines, scanner.Err()
}

type errInvalidLine struct {
	lineNum  int
	splits   int
	expected int
}

func (e errInvalidLine) Error() string {
	return fmt.Sprintf("at line %d, expected %d values, got %d",
		e.lineNum, e.expected, e.splits)
}

// LineSplitter returns the iterationNum-th batch of lines.
func LineSplitter(batchSize, iterationNum int, lines Lines) Lines {
	start := batchSize * iterationNum
	end := batchSize * (iterationNum + 1)

	if start < 0 || start >= len(lines) || end <= start {
		return Lines{}
	}
	if end > len(lines) {
		end = len(lines)
	}
	return lines[start:end]
}
