package pacs

import (
	"fmt"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// UIDs are the identifiers used to deduplicate and label uploads.
type UIDs struct {
	SOPInstance    string
	SeriesInstance string
	StudyInstance  string
}

// ReadUIDs parses the header of a DICOM file. Pixel data is skipped.
func ReadUIDs(path string) (UIDs, error) {
	ds, err := dicom.ParseFile(path, nil, dicom.SkipPixelData())
	if err != nil {
		return UIDs{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return UIDs{
		SOPInstance:    firstString(ds, tag.SOPInstanceUID),
		SeriesInstance: firstString(ds, tag.SeriesInstanceUID),
		StudyInstance:  firstString(ds, tag.StudyInstanceUID),
	}, nil
}

func firstString(ds dicom.Dataset, t tag.Tag) string {
	el, err := ds.FindElementByTag(t)
	if err != nil || el.Value == nil {
		return ""
	}
	if el.Value.ValueType() != dicom.Strings {
		return ""
	}
	s := dicom.MustGetStrings(el.Value)
	if len(s) == 0 {
		return ""
	}
	return s[0]
}
