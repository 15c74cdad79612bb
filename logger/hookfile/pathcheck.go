/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package hookfile

import (
	"os"
	"path/filepath"
)

// pathCheckCreate makes sure the parent directory of path exists, creating it
// (and the file itself, when isFile is true) if necessary.
func pathCheckCreate(isFile bool, path string, permFile os.FileMode, permDir os.FileMode) error {
	dir := filepath.Dir(path)

	if _, e := os.Stat(dir); e != nil {
		if !os.IsNotExist(e) {
			return e
		} else if e = os.MkdirAll(dir, permDir); e != nil {
			return e
		}
	}

	if !isFile {
		return nil
	}

	if _, e := os.Stat(path); e == nil {
		return nil
	} else if !os.IsNotExist(e) {
		return e
	}

	/* #nosec */
	f, e := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, permFile)
	if e != nil {
		return e
	}

	return f.Close()
}
