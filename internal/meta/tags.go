/*
Copyright (C) 2026 Ghostkeeper

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package meta

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	id3v2 "github.com/bogem/id3v2/v2"
	flac "github.com/go-flac/go-flac"
)

// writeTag stores one metadata field inside the audio file itself, so the
// information travels with the file. Only title, author, comment and bpm are
// stored this way; everything else lives in the database only.
func writeTag(path, field string, value any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".wav":
		return writeID3(path, field, value)
	case ".flac":
		return writeVorbisComment(path, field, value)
	default:
		// Vorbis and Opus write-back is not supported; the database keeps
		// the value regardless.
		return fmt.Errorf("cannot save metadata into file type of %s", path)
	}
}

func writeID3(path, field string, value any) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer tag.Close()

	switch field {
	case "title":
		tag.SetTitle(asString(value))
	case "author":
		tag.SetArtist(asString(value))
	case "comment":
		tag.AddCommentFrame(id3v2.CommentFrame{
			Encoding: id3v2.EncodingUTF8,
			Language: "eng",
			Text:     asString(value),
		})
	case "bpm":
		tag.AddTextFrame("TBPM", tag.DefaultEncoding(), strconv.Itoa(bpmAsInt(value)))
	}
	return tag.Save()
}

// writeVorbisComment replaces one field in the FLAC file's Vorbis Comment
// block, keeping the other comments intact. go-flac is low-level, so the
// block is decoded and re-encoded here.
func writeVorbisComment(path, field string, value any) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return err
	}

	key := field
	if field == "author" {
		key = "artist"
	}
	text := asString(value)
	if field == "bpm" {
		text = strconv.Itoa(bpmAsInt(value))
	}

	vendor := "LynDJ"
	var comments []string
	var keep []*flac.MetaDataBlock
	for _, block := range f.Meta {
		if block.Type != flac.VorbisComment {
			keep = append(keep, block)
			continue
		}
		vendor, comments, err = decodeVorbisComments(block.Data)
		if err != nil {
			return fmt.Errorf("corrupt vorbis comment block in %s: %w", path, err)
		}
	}

	replaced := false
	for i, comment := range comments {
		if strings.HasPrefix(strings.ToLower(comment), key+"=") {
			comments[i] = key + "=" + text
			replaced = true
		}
	}
	if !replaced {
		comments = append(comments, key+"="+text)
	}

	f.Meta = append(keep, &flac.MetaDataBlock{
		Type: flac.VorbisComment,
		Data: encodeVorbisComments(vendor, comments),
	})
	return f.Save(path)
}

func decodeVorbisComments(data []byte) (vendor string, comments []string, err error) {
	buf := bytes.NewReader(data)
	var length uint32
	if err = binary.Read(buf, binary.LittleEndian, &length); err != nil {
		return "", nil, err
	}
	vendorBytes := make([]byte, length)
	if _, err = buf.Read(vendorBytes); err != nil {
		return "", nil, err
	}
	var count uint32
	if err = binary.Read(buf, binary.LittleEndian, &count); err != nil {
		return "", nil, err
	}
	for i := uint32(0); i < count; i++ {
		if err = binary.Read(buf, binary.LittleEndian, &length); err != nil {
			return "", nil, err
		}
		comment := make([]byte, length)
		if _, err = buf.Read(comment); err != nil {
			return "", nil, err
		}
		comments = append(comments, string(comment))
	}
	return string(vendorBytes), comments, nil
}

func encodeVorbisComments(vendor string, comments []string) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(len(vendor)))
	buf.WriteString(vendor)
	binary.Write(&buf, binary.LittleEndian, uint32(len(comments)))
	for _, comment := range comments {
		binary.Write(&buf, binary.LittleEndian, uint32(len(comment)))
		buf.WriteString(comment)
	}
	return buf.Bytes()
}

func bpmAsInt(value any) int {
	bpm := asFloat(value)
	if bpm < 0 {
		return -1
	}
	return int(bpm)
}
