// =============================================================================
// DMARC Report Parser - XML Writer
// =============================================================================
//
// This module writes the flattened table back out as XML, one element per
// row. Downstream systems that only ingest XML can then consume the
// consolidated report without re-implementing the flattening.
//
// XML STRUCTURE:
//
//   <?xml version="1.0" encoding="UTF-8"?>
//   <records>
//     <row n="1">                        <!-- 1-based row index -->
//       <org_name>Outlook.com</org_name>
//       <sp/>                            <!-- present but empty -->
//       ...                              <!-- missing cells are omitted -->
//     </row>
//   </records>
//
// =============================================================================

package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/beevik/etree"

	"github.com/ginjaninja78/dmarc-report-parser/internal/table"
)

// Element and attribute names of the XML output.
const (
	XMLRootElement    = "records"
	XMLRowElement     = "row"
	XMLIndexAttribute = "n"
)

// XMLWriter writes one <row> element per table row.
type XMLWriter struct {
	opts Options
}

// Write implements Writer.
func (xw *XMLWriter) Write(w io.Writer, t *table.Table) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(XMLRootElement)

	columns := t.Columns()
	for i := 0; i < t.Rows(); i++ {
		row, err := t.Row(i)
		if err != nil {
			return err
		}

		el := root.CreateElement(XMLRowElement)
		el.CreateAttr(XMLIndexAttribute, strconv.Itoa(i+1))
		for j, v := range row {
			if v.IsMissing() {
				continue
			}
			el.CreateElement(columns[j]).SetText(v.Render(""))
		}
	}

	doc.Indent(len(xw.opts.Indent))
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write XML: %w", err)
	}
	return nil
}
