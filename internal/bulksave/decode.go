package bulksave

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/IntelliTect/Coalesce-sub010/internal/model"
)

// DecodeRequest reads a batch body and binds every item to the catalog.
// maxItems <= 0 disables the size limit. All failures are *ParseError.
func DecodeRequest(r io.Reader, cat *model.Catalog, maxItems int64) (*Request, error) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, parseErrorf("", "Request body could not be read.")
		}
		return nil, parseErrorf("", "Invalid JSON body: %v", err)
	}
	if body == nil {
		return nil, parseErrorf("", "Request body could not be read.")
	}

	// property names match case-insensitively
	lists := map[string][]json.RawMessage{}
	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var total int64
	for _, k := range keys {
		name := strings.ToLower(k)
		if name != "save" && name != "delete" && name != "none" {
			continue
		}
		var elems []json.RawMessage
		if err := json.Unmarshal(body[k], &elems); err != nil {
			return nil, parseErrorf(name, "must be an array of bulk save items")
		}
		lists[name] = append(lists[name], elems...)
		total += int64(len(elems))
	}
	if maxItems > 0 && total > maxItems {
		return nil, parseErrorf("", "Bulk save contains %d items; at most %d are allowed.", total, maxItems)
	}

	req := &Request{}
	var err error
	if req.Save, err = decodeItems("save", lists["save"], cat); err != nil {
		return nil, err
	}
	if req.Delete, err = decodeItems("delete", lists["delete"], cat); err != nil {
		return nil, err
	}
	if req.None, err = decodeItems("none", lists["none"], cat); err != nil {
		return nil, err
	}
	return req, nil
}

func decodeItems(list string, elems []json.RawMessage, cat *model.Catalog) ([]*Item, error) {
	items := make([]*Item, 0, len(elems))
	for i, raw := range elems {
		it, err := decodeItem(fmt.Sprintf("%s[%d]", list, i), raw, cat)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

// decodeItem requires "type" as the first key: the DTO shape of "data" is
// only known once the type is bound.
func decodeItem(path string, raw json.RawMessage, cat *model.Catalog) (*Item, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return nil, parseErrorf(path, "A bulk save item must be a JSON object.")
	}
	if !dec.More() {
		return nil, parseErrorf(path, "Property 'type' is required on bulk save item.")
	}
	key, err := nextKey(dec)
	if err != nil {
		return nil, parseErrorf(path, "Invalid JSON: %v", err)
	}
	if !strings.EqualFold(key, "type") {
		return nil, parseErrorf(path, "Property 'type' must be the first property of a bulk save item, found '%s'.", key)
	}

	var typeValue any
	if err := dec.Decode(&typeValue); err != nil {
		return nil, parseErrorf(path, "Invalid JSON: %v", err)
	}
	typeName, ok := typeValue.(string)
	if !ok || typeName == "" {
		return nil, parseErrorf(path, "Property 'type' must be a non-empty string.")
	}

	binding, err := cat.Bind(typeName)
	if err != nil {
		if errors.Is(err, model.ErrUnknownType) {
			return nil, parseErrorf(path, "Unknown type '%s'", typeName)
		}
		return nil, parseErrorf(path, "%v", err)
	}

	it := &Item{Type: typeName, Binding: binding}
	for dec.More() {
		name, err := nextKey(dec)
		if err != nil {
			return nil, parseErrorf(path, "Invalid JSON: %v", err)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, parseErrorf(path, "Invalid JSON: %v", err)
		}

		switch strings.ToLower(name) {
		case "data":
			if isNull(value) {
				return nil, parseErrorf(path, "Required property 'data' is missing")
			}
			rec, err := binding.Dto.DecodeRecord(value)
			if err != nil {
				return nil, parseErrorf(path+".data", "%v", err)
			}
			it.Data = rec
		case "refs":
			if isNull(value) {
				continue
			}
			if err := json.Unmarshal(value, &it.Refs); err != nil {
				return nil, parseErrorf(path+".refs", "Property 'refs' must map property names to integers.")
			}
		case "action":
			if err := json.Unmarshal(value, &it.Action); err != nil {
				return nil, parseErrorf(path+".action", "Property 'action' must be a string.")
			}
		case "root":
			if err := json.Unmarshal(value, &it.Root); err != nil {
				return nil, parseErrorf(path+".root", "Property 'root' must be a boolean.")
			}
		}
	}

	if it.Data == nil {
		return nil, parseErrorf(path, "Required property 'data' is missing")
	}
	return it, nil
}

func nextKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected a property name, got %v", tok)
	}
	return key, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
