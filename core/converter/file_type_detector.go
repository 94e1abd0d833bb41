package converter

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileType 基于内容识别的文件类型
type FileType string

const (
	FileTypeUnknown       FileType = "unknown"
	FileTypeJPEG          FileType = "jpeg"
	FileTypePNG           FileType = "png"
	FileTypeBMP           FileType = "bmp"
	FileTypeTIFF          FileType = "tiff"
	FileTypeTGA           FileType = "tga"
	FileTypePPM           FileType = "ppm"
	FileTypeRAW           FileType = "raw"
	FileTypeAlreadyTarget FileType = "jxl"
)

// headerSize 文件头读取长度
const headerSize = 12

var (
	magicJPEG      = []byte{0xFF, 0xD8, 0xFF}
	magicPNG       = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	magicBMP       = []byte{0x42, 0x4D}
	magicTIFFLE    = []byte{0x49, 0x49, 0x2A, 0x00}
	magicTIFFBE    = []byte{0x4D, 0x4D, 0x00, 0x2A}
	magicJXLStream = []byte{0xFF, 0x0A}
	magicJXLBox    = []byte("JXL ")
)

// rawExtensions 相机RAW扩展名
var rawExtensions = map[string]struct{}{
	".dng": {}, ".cr2": {}, ".cr3": {}, ".nef": {},
	".arw": {}, ".orf": {}, ".rw2": {}, ".raf": {},
}

// String 返回类型名称
func (ft FileType) String() string {
	return string(ft)
}

// IsLosslessSource 无损源格式族
func (ft FileType) IsLosslessSource() bool {
	switch ft {
	case FileTypePNG, FileTypeBMP, FileTypeTGA, FileTypePPM, FileTypeTIFF:
		return true
	}
	return false
}

// Classify 读取文件头并识别类型，读取失败视为未知
func Classify(path string) FileType {
	f, err := os.Open(path)
	if err != nil {
		return FileTypeUnknown
	}
	defer f.Close()

	header := make([]byte, headerSize)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FileTypeUnknown
	}
	return ClassifyBytes(header[:n], path)
}

// ClassifyBytes 按签名优先级识别类型，name 仅用于TGA和RAW的扩展名回退
func ClassifyBytes(header []byte, name string) FileType {
	if len(header) < 2 {
		return FileTypeUnknown
	}
	ext := strings.ToLower(filepath.Ext(name))

	switch {
	case bytes.HasPrefix(header, magicJPEG):
		return FileTypeJPEG
	case bytes.HasPrefix(header, magicPNG):
		return FileTypePNG
	case bytes.HasPrefix(header, magicBMP):
		return FileTypeBMP
	case bytes.HasPrefix(header, magicTIFFLE), bytes.HasPrefix(header, magicTIFFBE):
		// DNG/CR2/NEF/ARW 都是TIFF容器
		if isRawExtension(ext) {
			return FileTypeRAW
		}
		return FileTypeTIFF
	case isJXLSignature(header):
		return FileTypeAlreadyTarget
	case header[0] == 'P' && header[1] >= '1' && header[1] <= '6':
		return FileTypePPM
	case ext == ".tga":
		return FileTypeTGA
	case isRawExtension(ext):
		return FileTypeRAW
	}
	return FileTypeUnknown
}

// isJXLSignature 裸码流或ISOBMFF容器签名
func isJXLSignature(header []byte) bool {
	if bytes.HasPrefix(header, magicJXLStream) {
		return true
	}
	return len(header) >= 8 && header[0] == 0x00 && bytes.Equal(header[4:8], magicJXLBox)
}

func isRawExtension(ext string) bool {
	_, ok := rawExtensions[ext]
	return ok
}

// OutputPathFor 将扩展名替换为 .jxl
func OutputPathFor(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + ".jxl"
}

// TempPathFor 原地模式的临时输出路径
func TempPathFor(input string) string {
	return input + ".jxl.tmp"
}
